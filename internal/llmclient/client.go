// Package llmclient sends a generic completion request through a
// selected provider adapter, logging the call and surfacing tool calls
// and usage in one uniform shape regardless of which adapter answered.
package llmclient

import (
	"context"
	"log/slog"

	"github.com/brainless/nocodo-agentcore/internal/providers"
)

// Client drives a single providers.Adapter.
type Client struct {
	adapter providers.Adapter
	log     *slog.Logger
}

// New builds a client bound to adapter.
func New(adapter providers.Adapter, log *slog.Logger) *Client {
	return &Client{adapter: adapter, log: log}
}

// Complete issues req against the bound adapter and returns its reply.
// Adapter-level retry/classification already happened inside adapter.
func (c *Client) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	c.log.Debug("completion request",
		"provider", c.adapter.Name(),
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools))

	resp, err := c.adapter.Complete(ctx, req)
	if err != nil {
		c.log.Warn("completion failed", "provider", c.adapter.Name(), "model", req.Model, "error", err)
		return nil, err
	}

	c.log.Debug("completion response",
		"provider", c.adapter.Name(),
		"finish_reason", resp.FinishReason,
		"tool_calls", len(resp.ToolCalls),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp, nil
}

// CompleteStream streams req through the bound adapter. Returns
// providers.ErrStreamingUnsupported when the adapter can't stream.
func (c *Client) CompleteStream(ctx context.Context, req providers.CompletionRequest) (<-chan providers.CompletionChunk, error) {
	return c.adapter.CompleteStream(ctx, req)
}

// Name returns the bound adapter's provider name.
func (c *Client) Name() string { return c.adapter.Name() }
