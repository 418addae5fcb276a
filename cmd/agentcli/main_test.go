package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/internal/config"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd(slog.Default())

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"run", "sessions"} {
		require.True(t, names[name], "expected subcommand %q to be registered", name)
	}
}

func TestBuildRunCmdRequiresPrompt(t *testing.T) {
	var configPath, metricsAddr string
	cmd := buildRunCmd(slog.Default(), &configPath, &metricsAddr)
	cmd.SetArgs([]string{})
	require.Error(t, cmd.Execute())
}

func TestBuildAdapterRejectsUnknownProvider(t *testing.T) {
	_, err := buildAdapter(t.Context(), "not-a-real-provider", config.LLMProviderConfig{}, slog.Default())
	require.Error(t, err)
}
