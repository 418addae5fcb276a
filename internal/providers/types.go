// Package providers defines the adapter interface unifying LLM backends
// (OpenAI, Anthropic, Google, and OpenAI-compatible local/hosted runtimes)
// behind one request/response shape, plus the error taxonomy used to
// decide retry vs. failover vs. give up.
package providers

import (
	"context"
	"encoding/json"
)

// Role mirrors models.Role but stays package-local: a CompletionMessage
// is the wire shape sent to a provider, not the persisted transcript
// entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single function-call request emitted by the model.
type ToolCall struct {
	ID        string          // synthetic when the provider omits one (Ollama, llama.cpp)
	Name      string
	Arguments json.RawMessage
}

// CompletionMessage is one turn of the request/response transcript sent
// to a provider.
type CompletionMessage struct {
	Role       Role
	Content    string
	ToolCallID string     // set on Role == RoleTool, ties the result to its call
	ToolCalls  []ToolCall // set on Role == RoleAssistant when the model called tools
}

// Tool describes one callable function in the dialect a provider expects.
// Parameters is the tool's JSON Schema, already rewritten for the target
// provider by the schema package (e.g. requires_all_fields for OpenAI).
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolChoice constrains whether/which tool the model must call.
type ToolChoice struct {
	Mode string // "auto", "none", "required", or "" (provider default)
	Name string // set with Mode == "required" to force one specific tool
}

// ResponseFormat requests structured output from providers that support it.
type ResponseFormat struct {
	Type   string // "text" or "json_object"
	Schema json.RawMessage
}

// CompletionRequest is the provider-agnostic request shape. Adapters
// translate it into their wire format and translate the reply back into
// a CompletionResponse.
type CompletionRequest struct {
	Model          string
	Messages       []CompletionMessage
	Tools          []Tool
	ToolChoice     ToolChoice
	ResponseFormat ResponseFormat
	Temperature    *float64
	MaxTokens      int
	Stop           []string
}

// FinishReason normalizes why a completion ended.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage reports token accounting, when the provider exposes it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the provider-agnostic reply.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
	Model        string
}

// CompletionChunk is one increment of a streamed completion. Adapters
// that can't stream never produce one; callers detect support via
// ErrStreamingUnsupported from CompleteStream.
type CompletionChunk struct {
	ContentDelta  string
	ToolCallDelta *ToolCall
	Done          bool
	FinishReason  FinishReason
}

// Adapter is the interface every provider backend implements. Complete
// is the primary entry point the agent loop drives; CompleteStream is
// best-effort and may return ErrStreamingUnsupported.
type Adapter interface {
	// Name identifies the provider for logging and error classification.
	Name() string

	// Complete sends req and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteStream streams the response incrementally. Implementations
	// that cannot stream return ErrStreamingUnsupported immediately.
	CompleteStream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error)

	// Embed returns a vector embedding for each input string. Providers
	// without embedding support return ErrEmbeddingUnsupported.
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}
