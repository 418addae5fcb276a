// Package config loads the runtime's YAML configuration: which provider
// adapters are available and how they're credentialed, the tool
// sandbox/policy, the session store backend, and the fetch pipeline's
// tuning knobs.
package config

import "time"

const (
	defaultBashTimeout = 300 * time.Second
	defaultQueryTimeout = 30 * time.Second
)

// Config is the root configuration object, decoded from a single YAML
// document; unknown keys are ignored (see loader.go).
type Config struct {
	LLM           LLMConfig           `yaml:"providers"`
	Tools         ToolsConfig         `yaml:"tool_policy"`
	IterationCap  IterationCapConfig  `yaml:"iteration_cap"`
	SessionStore  SessionStoreConfig  `yaml:"session_store"`
	Fetch         FetchConfig         `yaml:"fetch"`
}

// applyDefaults fills in zero-valued fields with the runtime's defaults,
// matching the spec's stated defaults rather than requiring every
// config file to restate them.
func (c *Config) applyDefaults() {
	if c.IterationCap.MaxIterations <= 0 {
		c.IterationCap.MaxIterations = 30
	}
	if c.SessionStore.Backend == "" {
		c.SessionStore.Backend = "sqlite"
	}
	if c.SessionStore.Path == "" {
		c.SessionStore.Path = "agentcore.db"
	}
	if c.Fetch.BatchSize <= 0 {
		c.Fetch.BatchSize = 20
	}
	if c.Fetch.MaxDepth <= 0 {
		c.Fetch.MaxDepth = 5
	}
	if c.Fetch.RequestsPerSecond <= 0 {
		c.Fetch.RequestsPerSecond = 5
	}
	if c.Fetch.Burst <= 0 {
		c.Fetch.Burst = c.Fetch.BatchSize
	}
	if c.Fetch.Path == "" {
		c.Fetch.Path = "fetchpipeline.db"
	}
	if c.Tools.MaxFileBytes <= 0 {
		c.Tools.MaxFileBytes = 1 << 20 // 1 MiB
	}
	if c.Tools.MaxFiles <= 0 {
		c.Tools.MaxFiles = 5000
	}
	if c.Tools.Bash.Timeout <= 0 {
		c.Tools.Bash.Timeout = defaultBashTimeout
	}
	if c.Tools.SQLite.DefaultRowLimit <= 0 {
		c.Tools.SQLite.DefaultRowLimit = 100
	}
	if c.Tools.SQLite.MaxRowLimit <= 0 {
		c.Tools.SQLite.MaxRowLimit = 1000
	}
	if c.Tools.SQLite.QueryTimeout <= 0 {
		c.Tools.SQLite.QueryTimeout = defaultQueryTimeout
	}
}
