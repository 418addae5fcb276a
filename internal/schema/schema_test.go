package schema

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForProviderKnownDialects(t *testing.T) {
	require.True(t, ForProvider("openai", nil).RequiresAllFields)
	require.False(t, ForProvider("Anthropic", nil).RequiresAllFields)
}

func TestForProviderUnknownFallsBackPermissive(t *testing.T) {
	d := ForProvider("some-future-provider", slog.Default())
	require.False(t, d.RequiresAllFields)
}

func TestRewriteForcesRequiredUnderOpenAIDialect(t *testing.T) {
	canonical := json.RawMessage(`{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"integer"}}}`)

	out, err := Rewrite(canonical, ForProvider("openai", nil))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.ElementsMatch(t, []any{"a", "b"}, decoded["required"])
}

func TestRewriteLeavesRequiredUntouchedForPermissiveDialect(t *testing.T) {
	canonical := json.RawMessage(`{"type":"object","properties":{"a":{"type":"string"}},"required":["a"]}`)

	out, err := Rewrite(canonical, ForProvider("anthropic", nil))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, []any{"a"}, decoded["required"])
}

func TestRewriteRejectsMalformedSchema(t *testing.T) {
	canonical := json.RawMessage(`{"type":"object","properties":"not-an-object"}`)

	_, err := Rewrite(canonical, ForProvider("openai", nil))
	require.Error(t, err)
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	canonical := json.RawMessage(`{"type":"object","properties":{"a":{"type":"string"}}}`)
	require.NoError(t, Validate(canonical))
}

func TestValidateRejectsUnknownType(t *testing.T) {
	canonical := json.RawMessage(`{"type":"not-a-real-type"}`)
	require.Error(t, Validate(canonical))
}
