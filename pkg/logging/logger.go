// Package logging builds the zap-backed logr.Logger used by the lake pipeline
// binaries.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvFormat = "LOG_FORMAT"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the minimum level and the encoding of log output.
type Config struct {
	// Level is a zap level name (debug, info, warn, error), "trace" for
	// V(2) output, or a logr verbosity given as a plain number.
	Level string
	// Format is FormatJSON or FormatConsole. Empty picks console for
	// debug and trace levels, JSON otherwise.
	Format string
}

// ConfigFromEnv reads LOG_LEVEL and LOG_FORMAT.
func ConfigFromEnv() Config {
	return Config{Level: os.Getenv(EnvLevel), Format: os.Getenv(EnvFormat)}
}

// NewLogger builds a logger from the environment.
// The returned func flushes buffered entries and should be deferred.
func NewLogger() (logr.Logger, func(), error) {
	return New(ConfigFromEnv())
}

// New builds a logger from cfg.
func New(cfg Config) (logr.Logger, func(), error) {
	zl, err := cfg.build()
	if err != nil {
		return logr.Logger{}, nil, err
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

// ParseLevel maps a level name or logr verbosity onto a zap level.
// logr's V(n) logs at zap level -n, so "trace" is -2.
func ParseLevel(s string) (zapcore.Level, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "":
		return zapcore.InfoLevel, nil
	case "trace":
		return zapcore.Level(-2), nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("invalid log verbosity %d", v)
		}
		return zapcore.Level(-v), nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", EnvLevel, s, err)
	}
	return lvl, nil
}

func (c Config) build() (*zap.Logger, error) {
	lvl, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(c.Format)
	if format == "" {
		format = FormatJSON
		if lvl < zapcore.InfoLevel {
			format = FormatConsole
		}
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case FormatJSON:
	case FormatConsole:
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid %s %q", EnvFormat, c.Format)
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      lvl < zapcore.InfoLevel,
		Encoding:         format,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if !zc.Development {
		zc.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}
	return zc.Build()
}
