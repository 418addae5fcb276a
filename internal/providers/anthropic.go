package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter talks to the Messages API.
type AnthropicAdapter struct {
	base
	client anthropic.Client
}

// NewAnthropic builds an adapter against the real Anthropic API.
func NewAnthropic(apiKey string, log *slog.Logger) *AnthropicAdapter {
	return &AnthropicAdapter{
		base:   newBase("anthropic", log),
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (a *AnthropicAdapter) Name() string { return a.name }

func (a *AnthropicAdapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	wireReq, err := a.toWireRequest(req)
	if err != nil {
		return nil, err
	}

	var resp *anthropic.Message
	callErr := a.retry(ctx, isRetryableAnthropicErr, func(ctx context.Context) error {
		var err error
		resp, err = a.client.Messages.New(ctx, wireReq)
		if err != nil {
			return classifyAnthropicErr(a.name, err)
		}
		return nil
	})
	if callErr != nil {
		return nil, callErr
	}
	return a.fromWireResponse(resp), nil
}

func (a *AnthropicAdapter) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	wireReq, err := a.toWireRequest(req)
	if err != nil {
		return nil, err
	}

	stream := a.client.Messages.NewStreaming(ctx, wireReq)
	out := make(chan CompletionChunk)
	go func() {
		defer close(out)
		var msg anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				continue
			}
			switch delta := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if text := delta.Delta.Text; text != "" {
					select {
					case out <- CompletionChunk{ContentDelta: text}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		finish := mapAnthropicStopReason(string(msg.StopReason))
		select {
		case out <- CompletionChunk{Done: true, FinishReason: finish}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (a *AnthropicAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return nil, ErrEmbeddingUnsupported
}

func (a *AnthropicAdapter) toWireRequest(req CompletionRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = 4096
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = []anthropic.TextBlockParam{{Text: m.Content}}
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				_ = json.Unmarshal(tc.Arguments, &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}
	params.Messages = messages

	for _, t := range req.Tools {
		var schema map[string]any
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return params, err
			}
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
				},
			},
		})
	}
	switch req.ToolChoice.Mode {
	case "required":
		if req.ToolChoice.Name != "" {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: req.ToolChoice.Name}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		}
	case "none":
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	}
	return params, nil
}

func (a *AnthropicAdapter) fromWireResponse(resp *anthropic.Message) *CompletionResponse {
	out := &CompletionResponse{
		FinishReason: mapAnthropicStopReason(string(resp.StopReason)),
		Model:        string(resp.Model),
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += b.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: json.RawMessage(b.Input),
			})
		}
	}
	return out
}

func mapAnthropicStopReason(r string) FinishReason {
	switch r {
	case "max_tokens":
		return FinishLength
	case "tool_use":
		return FinishToolCalls
	default:
		return FinishStop
	}
}

func classifyAnthropicErr(provider string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ClassifyHTTP(provider, apiErr.StatusCode, apiErr.Error())
	}
	return ClassifyNetwork(provider, err)
}

func isRetryableAnthropicErr(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.IsRetryable()
	}
	return false
}
