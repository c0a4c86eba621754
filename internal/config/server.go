package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "APPART_SERVER_HOST"
	EnvServerPort              = "APPART_SERVER_PORT"
	EnvServerReadTimeout       = "APPART_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "APPART_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "APPART_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "APPART_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "APPART_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP server parameters.
// WriteTimeout bounds synchronous batch runs, so it defaults well above the
// per-attempt workflow timeouts.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return duration(c.ReadTimeout)
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return duration(c.ReadHeaderTimeout)
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return duration(c.WriteTimeout)
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return duration(c.IdleTimeout)
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	overlayTimeouts := overlay.timeouts()
	for i, t := range c.timeouts() {
		if v := *overlayTimeouts[i].value; v != "" {
			*t.value = v
		}
	}
}

type serverTimeout struct {
	name  string
	env   string
	def   string
	value *string
}

func (c *ServerConfig) timeouts() []serverTimeout {
	return []serverTimeout{
		{"read_timeout", EnvServerReadTimeout, "1m", &c.ReadTimeout},
		{"read_header_timeout", EnvServerReadHeaderTimeout, "10s", &c.ReadHeaderTimeout},
		{"write_timeout", EnvServerWriteTimeout, "60m", &c.WriteTimeout},
		{"idle_timeout", EnvServerIdleTimeout, "2m", &c.IdleTimeout},
		{"shutdown_timeout", EnvServerShutdownTimeout, "30s", &c.ShutdownTimeout},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, t := range c.timeouts() {
		if *t.value == "" {
			*t.value = t.def
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, t := range c.timeouts() {
		if v := os.Getenv(t.env); v != "" {
			*t.value = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, t := range c.timeouts() {
		d, err := time.ParseDuration(*t.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", t.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", t.name)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
