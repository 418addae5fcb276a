package config

// SessionStoreConfig selects and configures the session store backend.
type SessionStoreConfig struct {
	// Backend is "sqlite" or "memory". Default: "sqlite".
	Backend string `yaml:"backend"`

	// Path is the sqlite database file; ":memory:" for an ephemeral
	// database. Ignored when Backend == "memory".
	Path string `yaml:"path"`
}

// IterationCapConfig bounds the agent execution loop.
type IterationCapConfig struct {
	// MaxIterations is the termination cap (spec default: 30).
	MaxIterations int `yaml:"max_iterations"`
}

// FetchConfig configures the concurrent fetch pipeline.
type FetchConfig struct {
	BatchSize         int     `yaml:"batch_size"`
	MaxDepth          int     `yaml:"max_depth"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// Path is the SQLite file backing the pipeline's item/user/queue
	// tables (internal/fetchpipeline.SQLiteStore).
	Path string `yaml:"path"`
}
