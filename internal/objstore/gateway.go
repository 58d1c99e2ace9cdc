// Package objstore provides the object store gateway the pipeline persists
// staged datasets through. Backends: MinIO, Amazon S3 (or compatible) and an
// in-memory store.
package objstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the backing service is unreachable
	// or rejects container management requests.
	ErrStoreUnavailable = errors.New("object store unavailable")

	// ErrStore is returned for transport or permission failures on object I/O.
	ErrStore = errors.New("object store error")

	// ErrObjectNotFound is returned when a requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// Gateway abstracts the container and object operations the pipeline needs.
type Gateway interface {
	// EnsureContainer creates the named container if it does not exist.
	// created reports whether this call created it.
	EnsureContainer(ctx context.Context, name string) (created bool, err error)

	// Put uploads data under key, overwriting any existing object.
	Put(ctx context.Context, container, key string, data []byte, contentType string) error

	// Get returns the full payload stored under key.
	// Returns ErrObjectNotFound if the key does not exist.
	Get(ctx context.Context, container, key string) ([]byte, error)

	// Close releases resources held by the gateway.
	Close() error
}

// BackendType identifies the object storage backend.
type BackendType string

const (
	// BackendMinio uses the MinIO client against a MinIO (or S3-compatible) server.
	BackendMinio BackendType = "minio"
	// BackendS3 uses the AWS SDK against Amazon S3 or an S3-compatible endpoint.
	BackendS3 BackendType = "s3"
	// BackendMemory keeps objects in process memory.
	BackendMemory BackendType = "memory"
)

// Config configures a Gateway.
type Config struct {
	// Backend selects the implementation (default "minio").
	Backend BackendType `yaml:"backend"`
	// Endpoint is host:port for MinIO, or an optional custom URL for S3.
	Endpoint string `yaml:"endpoint"`
	// Region is the bucket region (required for S3).
	Region string `yaml:"region"`
	// AccessKey is the access key id (optional; anonymous/IAM if unset).
	AccessKey string `yaml:"accessKey"`
	// SecretKey is the secret access key.
	SecretKey string `yaml:"secretKey"`
	// UseSSL selects https for the MinIO endpoint.
	UseSSL bool `yaml:"useSSL"`
	// UsePathStyle forces path-style bucket addressing on both backends.
	UsePathStyle bool `yaml:"usePathStyle"`
}

// New builds the Gateway selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Gateway, error) {
	switch cfg.Backend {
	case BackendMinio, "":
		g, err := NewMinioGateway(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case BackendS3:
		g, err := NewS3Gateway(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case BackendMemory:
		return NewMemoryGateway(), nil
	default:
		return nil, fmt.Errorf("unknown object store backend: %s", cfg.Backend)
	}
}
