// Package config loads the lake pipeline configuration from a YAML file and
// LAKE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"go-lake-pipeline/internal/engine"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/pipeline"
	"go-lake-pipeline/internal/staging"
)

// EnvConfigPath names the variable holding the YAML config file path.
const EnvConfigPath = "LAKE_CONFIG"

// Config is the complete process configuration.
type Config struct {
	Store       objstore.Config `yaml:"store"`
	Bucket      string          `yaml:"bucket"`
	ObjectKey   string          `yaml:"objectKey"`
	TableName   string          `yaml:"tableName"`
	StagingDir  string          `yaml:"stagingDir"`
	ContentType string          `yaml:"contentType"`

	// ListenAddr and HistoryPath are used by the API server only.
	ListenAddr  string `yaml:"listenAddr"`
	HistoryPath string `yaml:"historyPath"`
}

// DefaultConfig returns the configuration for a local MinIO on port 9000.
func DefaultConfig() *Config {
	return &Config{
		Store: objstore.Config{
			Backend:      objstore.BackendMinio,
			Endpoint:     "localhost:9000",
			Region:       "us-east-1",
			UsePathStyle: true,
		},
		Bucket:      "datalake",
		ObjectKey:   "sample_data.csv",
		TableName:   "data",
		ContentType: staging.ContentType,
		ListenAddr:  ":8080",
		HistoryPath: "lake_pipeline.db",
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from LAKE_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LAKE_STORE_ENDPOINT":   &c.Store.Endpoint,
		"LAKE_STORE_REGION":     &c.Store.Region,
		"LAKE_STORE_ACCESS_KEY": &c.Store.AccessKey,
		"LAKE_STORE_SECRET_KEY": &c.Store.SecretKey,
		"LAKE_BUCKET":           &c.Bucket,
		"LAKE_OBJECT_KEY":       &c.ObjectKey,
		"LAKE_TABLE":            &c.TableName,
		"LAKE_STAGING_DIR":      &c.StagingDir,
		"LAKE_CONTENT_TYPE":     &c.ContentType,
		"LAKE_LISTEN_ADDR":      &c.ListenAddr,
		"LAKE_HISTORY_PATH":     &c.HistoryPath,
	}
	for key, field := range strs {
		if v, ok := lookup(key); ok {
			*field = v
		}
	}

	if v, ok := lookup("LAKE_STORE_BACKEND"); ok {
		c.Store.Backend = objstore.BackendType(v)
	}

	bools := map[string]*bool{
		"LAKE_STORE_USE_SSL":    &c.Store.UseSSL,
		"LAKE_STORE_PATH_STYLE": &c.Store.UsePathStyle,
	}
	for key, field := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field = b
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case objstore.BackendMinio, "":
		if c.Store.Endpoint == "" {
			return errors.New("store.endpoint is required for the minio backend")
		}
	case objstore.BackendS3:
		if c.Store.Region == "" {
			return errors.New("store.region is required for the s3 backend")
		}
	case objstore.BackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.ObjectKey == "" {
		return errors.New("objectKey is required")
	}
	if !engine.ValidIdentifier(c.TableName) {
		return fmt.Errorf("invalid tableName %q", c.TableName)
	}
	return nil
}

// FromEnv loads the file named by LAKE_CONFIG, applies overrides and validates.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	path, _ := lookup(EnvConfigPath)
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Pipeline returns the per-run pipeline settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Container:   c.Bucket,
		ObjectKey:   c.ObjectKey,
		TableName:   c.TableName,
		ContentType: c.ContentType,
		StagingDir:  c.StagingDir,
	}
}
