package storage

import (
	"fmt"
	"os"
)

// Supported storage providers.
const (
	ProviderAzure = "azure"
	ProviderGCS   = "gcs"
)

// Config selects a blob provider and holds its connection parameters.
// Azure authenticates with ConnectionString when set, otherwise with the
// default Azure credential chain against AccountURL.
type Config struct {
	Provider         string `toml:"provider"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	Bucket           string `toml:"bucket"`
	CredentialsFile  string `toml:"credentials_file"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	ContainerName    string
	ConnectionString string
	AccountURL       string
	Bucket           string
	CredentialsFile  string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.Bucket != "" {
		c.Bucket = overlay.Bucket
	}
	if overlay.CredentialsFile != "" {
		c.CredentialsFile = overlay.CredentialsFile
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.ContainerName == "" {
		c.ContainerName = "documents"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, target *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}

	set(env.Provider, &c.Provider)
	set(env.ContainerName, &c.ContainerName)
	set(env.ConnectionString, &c.ConnectionString)
	set(env.AccountURL, &c.AccountURL)
	set(env.Bucket, &c.Bucket)
	set(env.CredentialsFile, &c.CredentialsFile)
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderAzure:
		if c.ContainerName == "" {
			return fmt.Errorf("container_name required")
		}
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("connection_string or account_url required")
		}
	case ProviderGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket required")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
