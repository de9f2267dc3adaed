package config

import (
	"fmt"
	"os"
	"strings"

	"careeradvisor/internal/errors"
)

// applyFallbacks fills values that can come from outside viper's key space.
func (c *Config) applyFallbacks() {
	c.applyAPIKeyFallback()
	c.applyObservabilityDefaults()
}

// applyAPIKeyFallback reads the API key from the variable named by
// ai.apiKeyEnv when no key was configured.
func (c *Config) applyAPIKeyFallback() {
	if c.AI.APIKey != "" || c.AI.APIKeyEnv == "" {
		return
	}
	c.AI.APIKey = strings.TrimSpace(os.Getenv(c.AI.APIKeyEnv))
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// LogSources logs where configuration came from, masking secrets.
func (c *Config) LogSources(logger *errors.Logger) {
	configFile := c.configFileUsed
	if configFile == "" {
		configFile = "none"
	}
	logger.Debug("Configuration loaded",
		"config_file", configFile,
		"dotenv_files", c.envFilesLoaded)

	for _, envVar := range []string{
		EnvPrefix + "_AI_APIKEY",
		EnvPrefix + "_AI_MODEL",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_VAULT_ENABLED",
		c.AI.APIKeyEnv,
	} {
		if envVar == "" {
			continue
		}
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				value = "***MASKED***"
			}
			logger.Debug("Environment override", "variable", envVar, "value", value)
		}
	}

	apiKeyState := "***NOT SET***"
	if c.AI.APIKey != "" {
		apiKeyState = "***CONFIGURED***"
	}
	logger.Debug("Effective configuration",
		"ai_provider", c.AI.Provider,
		"ai_model", c.AI.Model,
		"ai_timeout", c.AI.Timeout.String(),
		"api_key", apiKeyState,
		"server", c.Server.Host+":"+c.Server.Port,
		"log_level", c.App.LogLevel,
		"vault", c.Vault.Enabled,
		"observability", c.Observability.Enabled)
}
