package providers

import "log/slog"

// xAIBaseURL is Grok's OpenAI-compatible Chat Completions endpoint.
const xAIBaseURL = "https://api.x.ai/v1"

// NewGrok builds an adapter for xAI's Grok models, which speak the
// OpenAI Chat Completions wire format against a different host.
func NewGrok(apiKey string, log *slog.Logger) *OpenAIAdapter {
	return newOpenAICompatible("grok", apiKey, xAIBaseURL, false, log)
}
