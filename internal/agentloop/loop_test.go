package agentloop

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/internal/llmclient"
	"github.com/brainless/nocodo-agentcore/internal/providers"
	"github.com/brainless/nocodo-agentcore/internal/session"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// fakeAdapter scripts a fixed sequence of CompletionResponses so the
// loop's iteration behaviour can be tested without a network call.
type fakeAdapter struct {
	responses []*providers.CompletionResponse
	calls     int
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *fakeAdapter) CompleteStream(ctx context.Context, req providers.CompletionRequest) (<-chan providers.CompletionChunk, error) {
	return nil, providers.ErrStreamingUnsupported
}

func (f *fakeAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return nil, providers.ErrEmbeddingUnsupported
}

// echoTool is a trivial toolregistry.Tool used to exercise dispatch.
type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`)
}
func (echoTool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, "echo", err.Error()), nil
	}
	return toolregistry.Response{Kind: "echo", Summary: "echo: " + args.Text, Data: args.Text}, nil
}

func newTestLoop(t *testing.T, responses []*providers.CompletionResponse) (*Loop, session.Store) {
	t.Helper()
	store := session.NewMemoryStore()
	registry := toolregistry.New()
	registry.Register(echoTool{})

	adapter := &fakeAdapter{responses: responses}
	client := llmclient.New(adapter, slog.Default())
	loop := New(store, client, registry, "fake", Config{MaxIterations: 5}, slog.Default())
	return loop, store
}

func TestLoopTerminatesWithoutToolCalls(t *testing.T) {
	loop, store := newTestLoop(t, []*providers.CompletionResponse{
		{Content: "hello there", FinishReason: providers.FinishStop},
	})

	sess := &models.Session{AgentName: "test", Provider: "fake", Model: "fake-model", UserPrompt: "hi"}
	require.NoError(t, store.Create(context.Background(), sess))

	result, err := loop.Execute(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, "hello there", result)
	require.Equal(t, models.SessionCompleted, sess.Status)
}

func TestLoopDispatchesToolCallThenTerminates(t *testing.T) {
	loop, store := newTestLoop(t, []*providers.CompletionResponse{
		{
			FinishReason: providers.FinishToolCalls,
			ToolCalls: []providers.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"text":"ping"}`)},
			},
		},
		{Content: "done", FinishReason: providers.FinishStop},
	})

	sess := &models.Session{AgentName: "test", Provider: "fake", Model: "fake-model", UserPrompt: "hi"}
	require.NoError(t, store.Create(context.Background(), sess))

	result, err := loop.Execute(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, "done", result)

	calls, err := store.ListToolCalls(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, models.ToolCallCompleted, calls[0].Status)
}

func TestLoopUnknownToolContinues(t *testing.T) {
	loop, store := newTestLoop(t, []*providers.CompletionResponse{
		{
			FinishReason: providers.FinishToolCalls,
			ToolCalls: []providers.ToolCall{
				{ID: "call-1", Name: "nonexistent", Arguments: json.RawMessage(`{}`)},
			},
		},
		{Content: "recovered", FinishReason: providers.FinishStop},
	})

	sess := &models.Session{AgentName: "test", Provider: "fake", Model: "fake-model", UserPrompt: "hi"}
	require.NoError(t, store.Create(context.Background(), sess))

	result, err := loop.Execute(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, "recovered", result)

	calls, err := store.ListToolCalls(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, models.ToolCallFailed, calls[0].Status)
	require.Equal(t, toolregistryUnknownToolMessage, calls[0].Error[:len(toolregistryUnknownToolMessage)])
}

const toolregistryUnknownToolMessage = "no tool registered as"

func TestLoopExceedsIterationCap(t *testing.T) {
	responses := make([]*providers.CompletionResponse, 0, 6)
	for i := 0; i < 6; i++ {
		responses = append(responses, &providers.CompletionResponse{
			FinishReason: providers.FinishToolCalls,
			ToolCalls: []providers.ToolCall{
				{ID: "call", Name: "echo", Arguments: json.RawMessage(`{"text":"x"}`)},
			},
		})
	}
	loop, store := newTestLoop(t, responses)
	loop.cfg.MaxIterations = 3

	sess := &models.Session{AgentName: "test", Provider: "fake", Model: "fake-model", UserPrompt: "hi"}
	require.NoError(t, store.Create(context.Background(), sess))

	_, err := loop.Execute(context.Background(), sess)
	require.ErrorIs(t, err, ErrIterationCapExceeded)
	require.Equal(t, models.SessionFailed, sess.Status)
}

func TestLoopExceedsIterationCapOfOneRunsNoTools(t *testing.T) {
	loop, store := newTestLoop(t, []*providers.CompletionResponse{
		{
			FinishReason: providers.FinishToolCalls,
			ToolCalls: []providers.ToolCall{
				{ID: "call", Name: "echo", Arguments: json.RawMessage(`{"text":"x"}`)},
			},
		},
	})
	loop.cfg.MaxIterations = 1

	sess := &models.Session{AgentName: "test", Provider: "fake", Model: "fake-model", UserPrompt: "hi"}
	require.NoError(t, store.Create(context.Background(), sess))

	_, err := loop.Execute(context.Background(), sess)
	require.ErrorIs(t, err, ErrIterationCapExceeded)
	require.Equal(t, models.SessionFailed, sess.Status)

	calls, err := store.ListToolCalls(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Empty(t, calls)
}
