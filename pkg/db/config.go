package db

import (
	"errors"
	"fmt"

	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/common/log"
)

// ErrInvalidConfig is returned when a configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the database configuration
type Config struct {
	// Path is the bolt file the database lives in
	Path string

	// Compression is the codec applied to stored record payloads
	Compression codec.Compression

	// Logger receives the database's log output; nil uses the default
	Logger log.Logger
}

// DefaultConfig creates a Config with recommended default values
func DefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		Compression: codec.Snappy,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if c.Path == "" {
		return fmt.Errorf("%w: path must not be empty", ErrInvalidConfig)
	}
	switch c.Compression {
	case codec.NoCompression, codec.Snappy, codec.Zstd:
	default:
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidConfig, c.Compression)
	}
	return nil
}
