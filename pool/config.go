// File: pool/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Growth policy parameters. These are policy, not contract: exposing
// them keeps the growth factor and caps out of the allocator logic.

package pool

import "github.com/kelseyhightower/envconfig"

// Config controls how the pool grows against its upstream resource.
type Config struct {
	// InitialSize is the size of the first upstream block in bytes.
	InitialSize int `envconfig:"INITIAL_SIZE" default:"4194304"`

	// GrowthFactor scales each subsequent upstream block request.
	GrowthFactor float64 `envconfig:"GROWTH_FACTOR" default:"2.0"`

	// MaxSize caps the total bytes held from upstream. Zero means
	// unlimited.
	MaxSize int `envconfig:"MAX_SIZE" default:"0"`
}

// DefaultConfig returns the built-in growth policy.
func DefaultConfig() Config {
	return Config{
		InitialSize:  4 << 20,
		GrowthFactor: 2.0,
		MaxSize:      0,
	}
}

// ConfigFromEnv loads the growth policy from DEVMEM_POOL_* environment
// variables, falling back to the defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("devmem_pool", &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg.sanitized(), nil
}

func (c Config) sanitized() Config {
	if c.InitialSize <= 0 {
		c.InitialSize = 4 << 20
	}
	if c.GrowthFactor < 1.0 {
		c.GrowthFactor = 2.0
	}
	if c.MaxSize < 0 {
		c.MaxSize = 0
	}
	return c
}
