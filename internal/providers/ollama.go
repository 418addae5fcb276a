package providers

import "log/slog"

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// NewOllama builds an adapter for a local Ollama daemon, which exposes
// an OpenAI-compatible endpoint under /v1 but tends to omit tool_call
// ids, so they are synthesized on receipt.
func NewOllama(baseURL string, log *slog.Logger) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return newOpenAICompatible("ollama", "ollama", baseURL, true, log)
}
