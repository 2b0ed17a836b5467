package roadmap

import (
	"fmt"
	"os"
	"strings"
)

// Config holds configuration for a provider instance. Values are resolved
// with a fixed precedence: explicit constructor config, then the runtime
// options bag, then environment variables.
type Config struct {
	// Prefix is the provider's config key prefix (e.g., "jira").
	Prefix string

	// Values is the explicit constructor configuration.
	Values map[string]string

	// Options is the runtime options bag, consulted after Values.
	Options map[string]string
}

// NewConfig creates a Config for the given provider prefix.
func NewConfig(prefix string, values, options map[string]string) *Config {
	return &Config{Prefix: prefix, Values: values, Options: options}
}

// Get retrieves a config value by key. The key should not include the
// provider prefix. Example: for prefix "jira", cfg.Get("api_token") checks
// Values["api_token"], then Options["api_token"], then JIRA_API_TOKEN.
func (c *Config) Get(key string) string {
	if v, ok := c.Values[key]; ok && v != "" {
		return v
	}
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}
	return os.Getenv(c.envVarName(key))
}

// GetRequired is like Get but returns a *ConfigError when the value is empty.
func (c *Config) GetRequired(key string) (string, error) {
	if v := c.Get(key); v != "" {
		return v, nil
	}
	return "", &ConfigError{
		Field:  c.Prefix + "." + key,
		Reason: fmt.Sprintf("not configured (set it in config or export %s)", c.envVarName(key)),
	}
}

// envVarName converts a config key to its environment variable name.
// Example: for prefix "jira" and key "api_token", returns "JIRA_API_TOKEN".
func (c *Config) envVarName(key string) string {
	envKey := strings.ToUpper(c.Prefix + "_" + key)
	return strings.ReplaceAll(envKey, ".", "_")
}
