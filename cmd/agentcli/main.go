// Command agentcli is a thin demonstration entrypoint wiring config,
// session store, provider adapters, tool registry, and the agent
// execution loop into a runnable CLI. It is deliberately small: the
// runtime's surface lives in the internal packages, not here.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/brainless/nocodo-agentcore/internal/agentloop"
	"github.com/brainless/nocodo-agentcore/internal/config"
	"github.com/brainless/nocodo-agentcore/internal/fetchpipeline"
	"github.com/brainless/nocodo-agentcore/internal/llmclient"
	"github.com/brainless/nocodo-agentcore/internal/providers"
	"github.com/brainless/nocodo-agentcore/internal/session"
	"github.com/brainless/nocodo-agentcore/internal/tools/askuser"
	"github.com/brainless/nocodo-agentcore/internal/tools/bashtool"
	"github.com/brainless/nocodo-agentcore/internal/tools/files"
	"github.com/brainless/nocodo-agentcore/internal/tools/hackernews"
	"github.com/brainless/nocodo-agentcore/internal/tools/imap"
	"github.com/brainless/nocodo-agentcore/internal/tools/pdftotext"
	"github.com/brainless/nocodo-agentcore/internal/tools/sqlitereader"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			level = slog.LevelInfo
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd(logger).Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd(log *slog.Logger) *cobra.Command {
	var (
		configPath  string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:          "agentcli",
		Short:        "Run an LLM agent session against a configured provider and tool set",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(buildRunCmd(log, &configPath, &metricsAddr))
	root.AddCommand(buildSessionsCmd(&configPath))
	return root
}

// serveMetrics starts a /metrics endpoint in the background if addr is
// non-empty, mirroring the teacher's internal/gateway/http_server.go
// promhttp.Handler() wiring. Bind failures are logged, not fatal: a
// demonstration CLI shouldn't abort a run over a metrics port clash.
func serveMetrics(addr string, log *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

// buildRunCmd creates the "run" command: one end-to-end agent session.
func buildRunCmd(log *slog.Logger, configPath *string, metricsAddr *string) *cobra.Command {
	var (
		prompt       string
		systemPrompt string
		providerName string
		model        string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a prompt through the agent loop to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}

			serveMetrics(*metricsAddr, log)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			runtime, err := buildRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer runtime.store.Close()

			if providerName == "" {
				providerName = cfg.LLM.DefaultProvider
			}
			adapter, err := runtime.adapters.Resolve(providerName)
			if err != nil {
				return fmt.Errorf("resolve provider: %w", err)
			}
			if model == "" {
				model = cfg.LLM.Providers[providerName].DefaultModel
			}

			client := llmclient.New(adapter, log)
			loop := agentloop.New(runtime.store, client, runtime.registry, providerName,
				agentloop.Config{MaxIterations: cfg.IterationCap.MaxIterations}, log)

			sess := &models.Session{
				AgentName:    "agentcli",
				Provider:     providerName,
				Model:        model,
				SystemPrompt: systemPrompt,
				UserPrompt:   prompt,
				Status:       models.SessionRunning,
				StartedAt:    time.Now(),
			}
			if err := runtime.store.Create(ctx, sess); err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			result, err := loop.Execute(ctx, sess)
			if err != nil {
				return fmt.Errorf("agent loop: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "User prompt to run (required)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt override")
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider name; defaults to providers.default_provider")
	cmd.Flags().StringVar(&model, "model", "", "Model name; defaults to the provider's default_model")
	return cmd
}

// buildSessionsCmd creates the "sessions" command group for inspecting
// persisted runs.
func buildSessionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect persisted agent sessions",
	}
	cmd.AddCommand(buildSessionsListCmd(configPath), buildSessionsShowCmd(configPath))
	return cmd
}

func buildSessionsListCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := buildSessionStore(cfg.SessionStore)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.List(cmd.Context(), session.ListOptions{Limit: limit})
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", s.ID, s.Status, s.Provider, s.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list")
	return cmd
}

func buildSessionsShowCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session and its transcript as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := buildSessionStore(cfg.SessionStore)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			sess, err := store.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			history, err := store.GetHistory(ctx, sess.ID, 0)
			if err != nil {
				return fmt.Errorf("get history: %w", err)
			}

			payload, err := json.MarshalIndent(map[string]any{"session": sess, "messages": history}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
	return cmd
}

// runtime bundles the wiring buildRuntime assembles: every command that
// drives the agent loop needs the same store/registry/adapters triple.
type runtime struct {
	store    session.Store
	registry *toolregistry.Registry
	adapters *llmclient.AdapterRegistry
}

func buildRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger) (*runtime, error) {
	store, err := buildSessionStore(cfg.SessionStore)
	if err != nil {
		return nil, err
	}

	adapters, err := buildAdapterRegistry(ctx, cfg.LLM, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry, err := buildToolRegistry(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &runtime{store: store, registry: registry, adapters: adapters}, nil
}

func buildSessionStore(cfg config.SessionStoreConfig) (session.Store, error) {
	switch cfg.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "sqlite", "":
		return session.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Backend)
	}
}

// buildAdapterRegistry constructs one provider adapter per entry in
// cfg.Providers, keyed by the same name used in providers.<name> config
// and at the command line's --provider flag.
func buildAdapterRegistry(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (*llmclient.AdapterRegistry, error) {
	registry := llmclient.NewAdapterRegistry()
	for name, pcfg := range cfg.Providers {
		adapter, err := buildAdapter(ctx, name, pcfg, log)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		registry.Register(name, adapter)
	}
	return registry, nil
}

func buildAdapter(ctx context.Context, name string, cfg config.LLMProviderConfig, log *slog.Logger) (providers.Adapter, error) {
	switch name {
	case "anthropic":
		return providers.NewAnthropic(cfg.APIKey, log), nil
	case "openai":
		return providers.NewOpenAI(cfg.APIKey, log), nil
	case "gemini":
		return providers.NewGemini(ctx, cfg.APIKey, log)
	case "grok":
		return providers.NewGrok(cfg.APIKey, log), nil
	case "glm":
		return providers.NewGLM(cfg.APIKey, log), nil
	case "ollama":
		return providers.NewOllama(cfg.BaseURL, log), nil
	case "llamacpp":
		return providers.NewLlamaCpp(cfg.BaseURL, log), nil
	case "voyage":
		return providers.NewVoyage(cfg.APIKey, log), nil
	default:
		return nil, fmt.Errorf("no adapter constructor for provider %q", name)
	}
}

// buildToolRegistry registers every tool the runtime ships, in
// dependency order: filesystem/bash/sqlite tools need only cfg, the
// askuser tool needs the session store, and hackernews needs its own
// fetch pipeline store.
func buildToolRegistry(cfg *config.Config, store session.Store, log *slog.Logger) (*toolregistry.Registry, error) {
	registry := toolregistry.New()

	filesCfg := files.Config{
		Workspace:    cfg.Tools.WorkspaceRoot,
		MaxReadBytes: cfg.Tools.MaxFileBytes,
		MaxFiles:     cfg.Tools.MaxFiles,
	}
	registry.Register(files.NewListFilesTool(filesCfg))
	registry.Register(files.NewReadFileTool(filesCfg))
	registry.Register(files.NewWriteFileTool(filesCfg))
	registry.Register(files.NewGrepTool(filesCfg))
	registry.Register(files.NewApplyPatchTool(filesCfg))

	registry.Register(bashtool.New(bashtool.Config{
		Policy: bashtool.Policy{
			Allow:    append(append([]string{}, cfg.Tools.Policy.Allow...), cfg.Tools.Bash.ExtraAllow...),
			Deny:     append(append([]string{}, cfg.Tools.Policy.Deny...), cfg.Tools.Bash.ExtraDeny...),
			WorkDirs: cfg.Tools.Bash.AllowedWorkdirs,
		},
		DefaultWorkDir: cfg.Tools.WorkspaceRoot,
		DefaultTimeout: cfg.Tools.Bash.Timeout,
	}))

	registry.Register(sqlitereader.New(sqlitereader.Config{
		DefaultRowLimit: cfg.Tools.SQLite.DefaultRowLimit,
		MaxRowLimit:     cfg.Tools.SQLite.MaxRowLimit,
		QueryTimeout:    cfg.Tools.SQLite.QueryTimeout,
	}))

	registry.Register(pdftotext.New(pdftotext.Config{Workspace: cfg.Tools.WorkspaceRoot}))
	registry.Register(askuser.New(store))

	fetchStore, err := fetchpipeline.NewSQLiteStore(cfg.Fetch.Path)
	if err != nil {
		return nil, fmt.Errorf("open fetch pipeline store: %w", err)
	}
	registry.Register(hackernews.New(fetchStore, hackernews.Config{
		BatchSize:         cfg.Fetch.BatchSize,
		MaxDepth:          cfg.Fetch.MaxDepth,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
	}, log))

	if cfg.Tools.Mailbox.Host != "" {
		registry.Register(imap.New(imap.ServerConfig{
			Host:        cfg.Tools.Mailbox.Host,
			Port:        cfg.Tools.Mailbox.Port,
			Username:    cfg.Tools.Mailbox.Username,
			PasswordEnv: cfg.Tools.Mailbox.PasswordEnv,
			UseTLS:      cfg.Tools.Mailbox.UseTLS,
			Timeout:     cfg.Tools.Mailbox.Timeout,
		}))
	}

	return registry, nil
}
