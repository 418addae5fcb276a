package providers

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiAdapter talks to Google's generateContent API via the genai SDK.
type GeminiAdapter struct {
	base
	client *genai.Client
}

// NewGemini builds an adapter against the real Gemini API.
func NewGemini(ctx context.Context, apiKey string, log *slog.Logger) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, ClassifyNetwork("gemini", err)
	}
	return &GeminiAdapter{base: newBase("gemini", log), client: client}, nil
}

func (a *GeminiAdapter) Name() string { return a.name }

func (a *GeminiAdapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	contents, cfg, err := a.toWireRequest(req)
	if err != nil {
		return nil, err
	}

	var resp *genai.GenerateContentResponse
	callErr := a.retry(ctx, isRetryableGeminiErr, func(ctx context.Context) error {
		var err error
		resp, err = a.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
		if err != nil {
			return classifyGeminiErr(a.name, err)
		}
		return nil
	})
	if callErr != nil {
		return nil, callErr
	}
	return a.fromWireResponse(resp), nil
}

func (a *GeminiAdapter) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	contents, cfg, err := a.toWireRequest(req)
	if err != nil {
		return nil, err
	}

	out := make(chan CompletionChunk)
	go func() {
		defer close(out)
		for resp, err := range a.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
			if err != nil {
				select {
				case out <- CompletionChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
			chunk := CompletionChunk{}
			if len(resp.Candidates) > 0 {
				for _, part := range resp.Candidates[0].Content.Parts {
					if part.Text != "" {
						chunk.ContentDelta += part.Text
					}
					if part.FunctionCall != nil {
						args, _ := json.Marshal(part.FunctionCall.Args)
						chunk.ToolCallDelta = &ToolCall{
							ID:        newSyntheticToolCallID(),
							Name:      part.FunctionCall.Name,
							Arguments: args,
						}
					}
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- CompletionChunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (a *GeminiAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(inputs))
	for i, text := range inputs {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	resp, err := a.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, classifyGeminiErr(a.name, err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (a *GeminiAdapter) toWireRequest(req CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		cfg.StopSequences = req.Stop
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			var response map[string]any
			_ = json.Unmarshal([]byte(m.Content), &response)
			contents = append(contents, genai.NewContentFromParts(
				[]*genai.Part{genai.NewPartFromFunctionResponse(m.ToolCallID, response)}, genai.RoleUser))
		}
	}

	for _, t := range req.Tools {
		var schema *genai.Schema
		if len(t.Parameters) > 0 {
			schema = &genai.Schema{}
			_ = json.Unmarshal(t.Parameters, schema)
		}
		cfg.Tools = append(cfg.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			}},
		})
	}
	if req.ToolChoice.Mode == "required" || req.ToolChoice.Mode == "none" {
		mode := genai.FunctionCallingConfigModeAuto
		if req.ToolChoice.Mode == "required" {
			mode = genai.FunctionCallingConfigModeAny
		} else {
			mode = genai.FunctionCallingConfigModeNone
		}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}
	return contents, cfg, nil
}

func (a *GeminiAdapter) fromWireResponse(resp *genai.GenerateContentResponse) *CompletionResponse {
	out := &CompletionResponse{FinishReason: FinishStop}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]
	out.FinishReason = mapGeminiFinishReason(string(cand.FinishReason))
	if cand.Content == nil {
		return out
	}
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        newSyntheticToolCallID(),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	return out
}

func mapGeminiFinishReason(r string) FinishReason {
	switch r {
	case "MAX_TOKENS":
		return FinishLength
	case "SAFETY", "RECITATION":
		return FinishContentFilter
	default:
		return FinishStop
	}
}

func classifyGeminiErr(provider string, err error) error {
	return ClassifyNetwork(provider, err)
}

func isRetryableGeminiErr(err error) bool {
	if perr, ok := err.(*Error); ok {
		return perr.IsRetryable()
	}
	return false
}
