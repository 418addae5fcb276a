package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  default_provider: openai
  providers:
    openai:
      api_key: sk-test
      default_model: gpt-4o-mini
tool_policy:
  workspace_root: /tmp/workspace
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.IterationCap.MaxIterations)
	require.Equal(t, "sqlite", cfg.SessionStore.Backend)
	require.Equal(t, 20, cfg.Fetch.BatchSize)
	require.Equal(t, 5, cfg.Fetch.MaxDepth)
	require.Equal(t, "fetchpipeline.db", cfg.Fetch.Path)
	require.Empty(t, cfg.Tools.Mailbox.Host)
}

func TestLoadParsesMailboxConfig(t *testing.T) {
	path := writeConfig(t, `
providers:
  default_provider: openai
  providers:
    openai:
      api_key: sk-test
tool_policy:
  workspace_root: /tmp/workspace
  imap:
    host: imap.example.com
    username: bot@example.com
    password_env: BOT_IMAP_PASSWORD
    use_tls: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "imap.example.com", cfg.Tools.Mailbox.Host)
	require.Equal(t, "BOT_IMAP_PASSWORD", cfg.Tools.Mailbox.PasswordEnv)
	require.True(t, cfg.Tools.Mailbox.UseTLS)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	path := writeConfig(t, `
providers:
  default_provider: openai
  providers:
    openai:
      api_key: ${TEST_OPENAI_KEY}
      default_model: gpt-4o-mini
tool_policy:
  workspace_root: /tmp/workspace
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sk-from-env", cfg.LLM.Providers["openai"].APIKey)
}

func TestLoadRejectsMissingDefaultProvider(t *testing.T) {
	path := writeConfig(t, `
tool_policy:
  workspace_root: /tmp/workspace
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := writeConfig(t, `
providers:
  default_provider: openai
  providers:
    openai:
      api_key: sk-test
tool_policy:
  workspace_root: /tmp/workspace
unknown_top_level_key: true
`)

	_, err := Load(path)
	require.NoError(t, err)
}
