package activity

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds retry settings in their file form.
type Config struct {
	MaxAttempts     int     `toml:"max_attempts"`
	InitialInterval string  `toml:"initial_interval"`
	MaxInterval     string  `toml:"max_interval"`
	Coefficient     float64 `toml:"coefficient"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxAttempts     string
	InitialInterval string
	MaxInterval     string
	Coefficient     string
}

// Policy converts the config into a Policy with no per-attempt timeout.
func (c *Config) Policy() Policy {
	initial, _ := time.ParseDuration(c.InitialInterval)
	maxInterval, _ := time.ParseDuration(c.MaxInterval)
	return Policy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
		Coefficient:     c.Coefficient,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.InitialInterval != "" {
		c.InitialInterval = overlay.InitialInterval
	}
	if overlay.MaxInterval != "" {
		c.MaxInterval = overlay.MaxInterval
	}
	if overlay.Coefficient != 0 {
		c.Coefficient = overlay.Coefficient
	}
}

func (c *Config) loadDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval == "" {
		c.InitialInterval = "1s"
	}
	if c.MaxInterval == "" {
		c.MaxInterval = "60s"
	}
	if c.Coefficient == 0 {
		c.Coefficient = 2
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAttempts = n
			}
		}
	}
	if env.InitialInterval != "" {
		if v := os.Getenv(env.InitialInterval); v != "" {
			c.InitialInterval = v
		}
	}
	if env.MaxInterval != "" {
		if v := os.Getenv(env.MaxInterval); v != "" {
			c.MaxInterval = v
		}
	}
	if env.Coefficient != "" {
		if v := os.Getenv(env.Coefficient); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Coefficient = f
			}
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.InitialInterval); err != nil {
		return fmt.Errorf("invalid initial_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxInterval); err != nil {
		return fmt.Errorf("invalid max_interval: %w", err)
	}
	return c.Policy().Validate()
}
