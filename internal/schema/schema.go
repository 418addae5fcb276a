// Package schema rewrites a tool's canonical JSON Schema into the
// dialect a given provider expects, so the schema shown to the model
// and the schema used to decode its arguments always derive from one
// source of truth.
package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Dialect selects how a schema's required/optional distinction is
// rewritten for a provider.
type Dialect struct {
	// RequiresAllFields forces every property into "required" (OpenAI
	// strict mode). When false, the schema's original required list is
	// left untouched (Anthropic, GLM, Grok, Gemini, Ollama, llama.cpp).
	RequiresAllFields bool
}

var dialects = map[string]Dialect{
	"openai":   {RequiresAllFields: true},
	"anthropic": {RequiresAllFields: false},
	"glm":      {RequiresAllFields: false},
	"grok":     {RequiresAllFields: false},
	"gemini":   {RequiresAllFields: false},
	"ollama":   {RequiresAllFields: false},
	"llamacpp": {RequiresAllFields: false},
}

// ForProvider resolves the dialect for a provider name (case-insensitive).
// Unknown providers fall back to the permissive dialect and a warning.
func ForProvider(provider string, log *slog.Logger) Dialect {
	d, ok := dialects[strings.ToLower(provider)]
	if !ok {
		if log != nil {
			log.Warn("schema: unknown provider, using permissive dialect", "provider", provider)
		}
		return Dialect{RequiresAllFields: false}
	}
	return d
}

// Validate confirms canonical is well-formed JSON Schema by compiling
// it with santhosh-tekuri/jsonschema. This catches authoring mistakes
// (a "type" that isn't a recognised keyword, a non-object
// "properties", and similar) before the schema is normalised for any
// provider dialect.
func Validate(canonical json.RawMessage) error {
	if len(canonical) == 0 {
		return nil
	}
	if _, err := jsonschema.CompileString("canonical-tool-schema.json", string(canonical)); err != nil {
		return fmt.Errorf("schema: invalid canonical schema: %w", err)
	}
	return nil
}

// Rewrite applies dialect to canonical, a tool's parameter schema
// expressed with inline subschemas (no $ref/allOf — some providers'
// validators reject them, so canonical schemas must never use them).
// The input is not mutated; the result is a fresh value.
func Rewrite(canonical json.RawMessage, d Dialect) (json.RawMessage, error) {
	if len(canonical) == 0 {
		return canonical, nil
	}
	if err := Validate(canonical); err != nil {
		return nil, err
	}
	var schema map[string]any
	if err := json.Unmarshal(canonical, &schema); err != nil {
		return nil, err
	}

	if d.RequiresAllFields {
		if props, ok := schema["properties"].(map[string]any); ok {
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			schema["required"] = names
		}
	}

	return json.Marshal(schema)
}
