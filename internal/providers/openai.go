package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter talks to the OpenAI Chat Completions API. It also backs
// every OpenAI-compatible runtime (xAI/Grok, Zhipu GLM, Ollama,
// llama.cpp) by pointing the client's BaseURL elsewhere; see the
// NewXxx constructors in grok.go, glm.go, ollama.go, llamacpp.go.
type OpenAIAdapter struct {
	base
	client          *openai.Client
	supportsStream  bool
	syntheticToolID bool // true for runtimes that omit tool_call ids (Ollama, llama.cpp)
}

// NewOpenAI builds an adapter against the real OpenAI API.
func NewOpenAI(apiKey string, log *slog.Logger) *OpenAIAdapter {
	return &OpenAIAdapter{
		base:           newBase("openai", log),
		client:         openai.NewClient(apiKey),
		supportsStream: true,
	}
}

// newOpenAICompatible builds an adapter pointed at a different base URL,
// for providers that speak the same wire protocol as OpenAI.
func newOpenAICompatible(name, apiKey, baseURL string, syntheticIDs bool, log *slog.Logger) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIAdapter{
		base:            newBase(name, log),
		client:          openai.NewClientWithConfig(cfg),
		supportsStream:  true,
		syntheticToolID: syntheticIDs,
	}
}

func (a *OpenAIAdapter) Name() string { return a.name }

func (a *OpenAIAdapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	wireReq, err := a.toWireRequest(req)
	if err != nil {
		return nil, err
	}

	var resp openai.ChatCompletionResponse
	callErr := a.retry(ctx, isRetryableOpenAIErr, func(ctx context.Context) error {
		var err error
		resp, err = a.client.CreateChatCompletion(ctx, wireReq)
		if err != nil {
			return classifyOpenAIErr(a.name, err)
		}
		return nil
	})
	if callErr != nil {
		return nil, callErr
	}
	return a.fromWireResponse(resp)
}

func (a *OpenAIAdapter) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	if !a.supportsStream {
		return nil, ErrStreamingUnsupported
	}
	wireReq, err := a.toWireRequest(req)
	if err != nil {
		return nil, err
	}
	wireReq.Stream = true

	stream, err := a.client.CreateChatCompletionStream(ctx, wireReq)
	if err != nil {
		return nil, classifyOpenAIErr(a.name, err)
	}

	out := make(chan CompletionChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		toolCalls := map[int]*ToolCall{}
		for {
			resp, err := stream.Recv()
			if err != nil {
				out <- CompletionChunk{Done: true}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			chunk := CompletionChunk{ContentDelta: choice.Delta.Content}
			for _, tc := range choice.Delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				existing, ok := toolCalls[idx]
				if !ok {
					existing = &ToolCall{ID: tc.ID, Name: tc.Function.Name}
					toolCalls[idx] = existing
				}
				existing.Arguments = append(existing.Arguments, json.RawMessage(tc.Function.Arguments)...)
				chunk.ToolCallDelta = existing
			}
			if choice.FinishReason != "" {
				chunk.FinishReason = mapFinishReason(string(choice.FinishReason))
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (a *OpenAIAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: inputs,
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, classifyOpenAIErr(a.name, err)
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (a *OpenAIAdapter) toWireRequest(req CompletionRequest) (openai.ChatCompletionRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		wm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		messages = append(messages, wm)
	}

	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		var params map[string]any
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &params); err != nil {
				return openai.ChatCompletionRequest{}, err
			}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}

	wireReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: req.MaxTokens,
		Stop:      req.Stop,
	}
	if req.Temperature != nil {
		wireReq.Temperature = float32(*req.Temperature)
	}
	switch req.ToolChoice.Mode {
	case "none":
		wireReq.ToolChoice = "none"
	case "required":
		if req.ToolChoice.Name != "" {
			wireReq.ToolChoice = openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: req.ToolChoice.Name},
			}
		} else {
			wireReq.ToolChoice = "required"
		}
	case "auto", "":
		if len(tools) > 0 {
			wireReq.ToolChoice = "auto"
		}
	}
	if req.ResponseFormat.Type == "json_object" {
		wireReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return wireReq, nil
}

func (a *OpenAIAdapter) fromWireResponse(resp openai.ChatCompletionResponse) (*CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: a.name, Kind: KindAPIError, Message: "empty choices in response"}
	}
	choice := resp.Choices[0]
	out := &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: mapFinishReason(string(choice.FinishReason)),
		Model:        resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" && a.syntheticToolID {
			id = newSyntheticToolCallID()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func mapFinishReason(r string) FinishReason {
	switch r {
	case "length":
		return FinishLength
	case "tool_calls", "function_call":
		return FinishToolCalls
	case "content_filter":
		return FinishContentFilter
	default:
		return FinishStop
	}
}

func classifyOpenAIErr(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ClassifyHTTP(provider, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ClassifyHTTP(provider, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return ClassifyNetwork(provider, err)
}

func isRetryableOpenAIErr(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.IsRetryable()
	}
	return false
}
