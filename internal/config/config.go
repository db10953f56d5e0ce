// Package config loads engine configuration from YAML.
//
// A Config is plain data. It is validated once and then turned into the
// immutable tables the engine runs on (promote.Table, parallel.Config), so
// nothing downstream consults configuration through global state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/promote"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// ValidationError describes a configuration value that was rejected.
type ValidationError struct {
	Field   string // YAML path of the offending field, e.g. "deferred.unary"
	Value   string // offending value
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config %s: %q: %s", e.Field, e.Value, e.Details)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Details)
}

// Config is the engine configuration.
type Config struct {
	Deferred Deferred `yaml:"deferred"`
	Parallel Parallel `yaml:"parallel"`
	Log      Log      `yaml:"log"`
}

// Deferred lists what the engine may defer. Operations and dtypes outside
// these sets run eagerly on the host runtime.
type Deferred struct {
	Unary       []string `yaml:"unary"`
	Binary      []string `yaml:"binary"`
	DTypes      []string `yaml:"dtypes"`
	UnaryDTypes []string `yaml:"unary_dtypes"`
}

// Parallel configures the host kernels.
type Parallel struct {
	Enabled  bool `yaml:"enabled"`
	Workers  int  `yaml:"workers"`   // 0 means one per CPU
	MinChunk int  `yaml:"min_chunk"` // elements per goroutine
}

// Log configures the engine logger.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Deferred: Deferred{
			Unary:       []string{"exp", "log", "sqrt"},
			Binary:      []string{"add", "subtract", "multiply", "divide"},
			DTypes:      []string{"float32", "float64", "int32", "int64"},
			UnaryDTypes: []string{"float32", "float64"},
		},
		Parallel: Parallel{
			Enabled:  true,
			MinChunk: parallel.DefaultConfig().MinChunkSize,
		},
		Log: Log{Level: "info"},
	}
}

// Parse decodes YAML on top of the defaults. Fields missing from data keep
// their default values; unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Validate checks every name and bound in the configuration.
func (c *Config) Validate() error {
	if _, err := c.Table(); err != nil {
		return err
	}
	if c.Parallel.Workers < 0 {
		return &ValidationError{Field: "parallel.workers", Value: fmt.Sprint(c.Parallel.Workers), Details: "must not be negative"}
	}
	if c.Parallel.MinChunk < 1 {
		return &ValidationError{Field: "parallel.min_chunk", Value: fmt.Sprint(c.Parallel.MinChunk), Details: "must be positive"}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Table builds the deferral table.
func (c *Config) Table() (*promote.Table, error) {
	unary := make([]expr.UnaryFn, 0, len(c.Deferred.Unary))
	for _, name := range c.Deferred.Unary {
		op, err := expr.ParseOp(name)
		if err != nil {
			return nil, &ValidationError{Field: "deferred.unary", Value: name, Details: "unknown operation"}
		}
		u, ok := op.(expr.Unary)
		if !ok {
			return nil, &ValidationError{Field: "deferred.unary", Value: name, Details: "not a deferrable unary operation"}
		}
		unary = append(unary, u.Fn)
	}

	binary := make([]expr.BinaryFn, 0, len(c.Deferred.Binary))
	for _, name := range c.Deferred.Binary {
		op, err := expr.ParseOp(name)
		if err != nil {
			return nil, &ValidationError{Field: "deferred.binary", Value: name, Details: "unknown operation"}
		}
		b, ok := op.(expr.Binary)
		if !ok {
			return nil, &ValidationError{Field: "deferred.binary", Value: name, Details: "not a deferrable binary operation"}
		}
		binary = append(binary, b.Fn)
	}

	dtypes, err := parseDTypes("deferred.dtypes", c.Deferred.DTypes)
	if err != nil {
		return nil, err
	}
	unaryDTypes, err := parseDTypes("deferred.unary_dtypes", c.Deferred.UnaryDTypes)
	if err != nil {
		return nil, err
	}

	return promote.NewTable(unary, binary, dtypes, unaryDTypes), nil
}

func parseDTypes(field string, names []string) ([]tensor.DataType, error) {
	out := make([]tensor.DataType, 0, len(names))
	for _, name := range names {
		dt, err := tensor.ParseDataType(name)
		if err != nil {
			return nil, &ValidationError{Field: field, Value: name, Details: "unknown dtype"}
		}
		out = append(out, dt)
	}
	return out, nil
}

// ParallelConfig returns the kernel parallelism settings.
func (c *Config) ParallelConfig() parallel.Config {
	return parallel.Config{
		Enabled:      c.Parallel.Enabled,
		NumWorkers:   c.Parallel.Workers,
		MinChunkSize: c.Parallel.MinChunk,
	}
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, &ValidationError{Field: "log.level", Value: c.Log.Level, Details: "unknown level"}
	}
}
