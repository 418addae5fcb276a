package config

// LLMConfig configures the set of provider adapters the runtime can
// dispatch completions to.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig configures one provider adapter instance. APIKey may
// be left empty in the file and supplied via the provider's env var
// overlay (see loader.go) so keys never need to live on disk.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"` // overrides the adapter's default endpoint; used by Ollama/llama.cpp
}
