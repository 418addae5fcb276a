package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and decodes a YAML config file at path. Environment
// variables referenced as $NAME or ${NAME} are expanded before parsing,
// so API keys never need to live on disk. Unknown keys are ignored. A
// provider whose api_key is still empty after parsing takes it from the
// <NAME>_API_KEY environment variable (NAME is the provider's key,
// upper-cased).
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	cfg, err := decode(expanded)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	for name, p := range cfg.LLM.Providers {
		if p.APIKey == "" {
			p.APIKey = os.Getenv(strings.ToUpper(name) + "_API_KEY")
			cfg.LLM.Providers[name] = p
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data string) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(data)))

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("expected a single YAML document")
	}
	return &cfg, nil
}

// validate fails fast on configuration the runtime cannot start with,
// rather than surfacing a nil-pointer deep inside a running session.
func (c *Config) validate() error {
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("providers.default_provider is required")
	}
	selected, ok := c.LLM.Providers[c.LLM.DefaultProvider]
	if !ok {
		return fmt.Errorf("providers.default_provider %q has no matching entry under providers.providers", c.LLM.DefaultProvider)
	}
	switch c.LLM.DefaultProvider {
	case "ollama", "llamacpp":
	default:
		if selected.APIKey == "" {
			return fmt.Errorf("providers.providers.%s.api_key is empty and %s_API_KEY is unset", c.LLM.DefaultProvider, strings.ToUpper(c.LLM.DefaultProvider))
		}
	}
	if c.Tools.WorkspaceRoot == "" {
		return fmt.Errorf("tool_policy.workspace_root is required")
	}
	switch c.SessionStore.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("session_store.backend must be \"sqlite\" or \"memory\", got %q", c.SessionStore.Backend)
	}
	return nil
}
