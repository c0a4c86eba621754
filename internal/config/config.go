// Package config loads the service and runner configuration from TOML files,
// environment overlays, and APPART_ environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/activity"
	"github.com/JaimeStill/appart/pkg/database"
	"github.com/JaimeStill/appart/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAppartEnv             = "APPART_ENV"
	EnvAppartShutdownTimeout = "APPART_SHUTDOWN_TIMEOUT"
	EnvAppartVersion         = "APPART_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "APPART_DB_HOST",
	Port:            "APPART_DB_PORT",
	Name:            "APPART_DB_NAME",
	User:            "APPART_DB_USER",
	Password:        "APPART_DB_PASSWORD",
	SSLMode:         "APPART_DB_SSL_MODE",
	MaxOpenConns:    "APPART_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "APPART_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "APPART_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "APPART_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "APPART_STORAGE_PROVIDER",
	ContainerName:    "APPART_STORAGE_CONTAINER_NAME",
	ConnectionString: "APPART_STORAGE_CONNECTION_STRING",
	AccountURL:       "APPART_STORAGE_ACCOUNT_URL",
	Bucket:           "APPART_STORAGE_BUCKET",
	CredentialsFile:  "APPART_STORAGE_CREDENTIALS_FILE",
}

var workflowEnv = &workflow.Env{
	MaxConcurrency: "APPART_WORKFLOW_MAX_CONCURRENCY",
	ClassifyPages:  "APPART_WORKFLOW_CLASSIFY_PAGES",
	ExtractPages:   "APPART_WORKFLOW_EXTRACT_PAGES",
	Routing:        "APPART_WORKFLOW_ROUTING",
	Retry: &activity.Env{
		MaxAttempts:     "APPART_WORKFLOW_RETRY_MAX_ATTEMPTS",
		InitialInterval: "APPART_WORKFLOW_RETRY_INITIAL_INTERVAL",
		MaxInterval:     "APPART_WORKFLOW_RETRY_MAX_INTERVAL",
		Coefficient:     "APPART_WORKFLOW_RETRY_COEFFICIENT",
	},
	Acquire:    "APPART_WORKFLOW_TIMEOUT_ACQUIRE",
	Classify:   "APPART_WORKFLOW_TIMEOUT_CLASSIFY",
	Extract:    "APPART_WORKFLOW_TIMEOUT_EXTRACT",
	Synthesize: "APPART_WORKFLOW_TIMEOUT_SYNTHESIZE",
	Persist:    "APPART_WORKFLOW_TIMEOUT_PERSIST",
}

// Config is the root configuration for the appart service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Workflow        workflow.Config      `toml:"workflow"`
	Logging         LoggingConfig        `toml:"logging"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// RunnerConfig is the subset of configuration the local batch runner needs.
type RunnerConfig struct {
	Agent    gaconfig.AgentConfig `toml:"agent"`
	Workflow workflow.Config      `toml:"workflow"`
	Logging  LoggingConfig        `toml:"logging"`
}

// Env returns the APPART_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAppartEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		if err := load(BaseConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	if path := overlayPath(); path != "" {
		overlay := &Config{}
		if err := load(path, overlay); err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadRunner reads the agent, workflow, and logging sections from path, or
// from config.toml when path is empty and the file exists, then finalizes them.
func LoadRunner(path string) (*RunnerConfig, error) {
	cfg := &RunnerConfig{}

	if path == "" {
		if _, err := os.Stat(BaseConfigFile); err == nil {
			path = BaseConfigFile
		}
	}
	if path != "" {
		if err := load(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Workflow.Finalize(workflowEnv); err != nil {
		return nil, fmt.Errorf("finalize config: workflow: %w", err)
	}
	if err := cfg.Logging.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: logging: %w", err)
	}
	if err := FinalizeAgent(&cfg.Agent); err != nil {
		return nil, fmt.Errorf("finalize config: agent: %w", err)
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Workflow.Merge(&overlay.Workflow)
	c.Logging.Merge(&overlay.Logging)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvAppartShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvAppartVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

func overlayPath() string {
	if env := os.Getenv(EnvAppartEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
