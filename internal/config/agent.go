package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentName         = "APPART_AGENT_NAME"
	EnvAgentProviderName = "APPART_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "APPART_AGENT_BASE_URL"
	EnvAgentToken        = "APPART_AGENT_TOKEN"
	EnvAgentDeployment   = "APPART_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "APPART_AGENT_API_VERSION"
	EnvAgentAuthType     = "APPART_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "APPART_AGENT_MODEL_NAME"
)

// DefaultAgentModel is the vision model used when no model name is configured.
const DefaultAgentModel = "llama3.2-vision"

// provider option keys settable from the environment
var agentOptionEnv = map[string]string{
	"token":       EnvAgentToken,
	"deployment":  EnvAgentDeployment,
	"api_version": EnvAgentAPIVersion,
	"auth_type":   EnvAgentAuthType,
}

// FinalizeAgent layers a go-agents AgentConfig over DefaultAgentConfig, applies
// environment overrides, and validates it. The model name falls back to
// DefaultAgentModel since every pipeline stage sends page images.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Model.Name = DefaultAgentModel
	defaults.Merge(c)
	*c = defaults

	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}
	for key, env := range agentOptionEnv {
		if v := os.Getenv(env); v != "" {
			c.Provider.Options[key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	switch {
	case c.Name == "":
		return errors.New("name required")
	case c.Provider == nil || c.Provider.Name == "":
		return errors.New("provider name required")
	case c.Model == nil || c.Model.Name == "":
		return errors.New("model name required")
	}
	return nil
}
