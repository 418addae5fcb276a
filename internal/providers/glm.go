package providers

import "log/slog"

// zhipuBaseURL is Zhipu's OpenAI-compatible coding-plan endpoint for the
// GLM model family.
const zhipuBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// NewGLM builds an adapter for Zhipu's GLM models over their
// OpenAI-compatible endpoint.
func NewGLM(apiKey string, log *slog.Logger) *OpenAIAdapter {
	return newOpenAICompatible("glm", apiKey, zhipuBaseURL, false, log)
}
