// Package agentloop orchestrates the completion -> tool-dispatch ->
// completion cycle for one session: building the provider-visible
// transcript from stored history, calling the Unified LLM Client,
// dispatching any tool calls the model requested, and persisting every
// step until the model returns a terminal assistant message or the
// iteration cap is reached.
package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brainless/nocodo-agentcore/internal/llmclient"
	"github.com/brainless/nocodo-agentcore/internal/metrics"
	"github.com/brainless/nocodo-agentcore/internal/providers"
	"github.com/brainless/nocodo-agentcore/internal/session"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// DefaultMaxIterations is the default termination cap (spec: 30).
const DefaultMaxIterations = 30

// Config tunes one Loop instance.
type Config struct {
	MaxIterations int // 0 means DefaultMaxIterations
}

// Loop executes sessions against a single provider/model pair.
type Loop struct {
	store    session.Store
	client   *llmclient.Client
	registry *toolregistry.Registry
	provider string
	cfg      Config
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// New builds a Loop bound to store, client, registry and provider name
// (used to select the tool schema dialect and map roles on the wire).
func New(store session.Store, client *llmclient.Client, registry *toolregistry.Registry, providerName string, cfg Config, log *slog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Loop{store: store, client: client, registry: registry, provider: providerName, cfg: cfg, log: log, metrics: metrics.Default()}
}

// ErrIterationCapExceeded is returned (and recorded on the session) when
// the loop exceeds its configured iteration cap without terminating.
var ErrIterationCapExceeded = errors.New("agentloop: maximum iteration limit reached")

// Execute runs sess.UserPrompt through the loop, persisting every step,
// and returns the final assistant text once the session reaches a
// terminal state.
func (l *Loop) Execute(ctx context.Context, sess *models.Session) (string, error) {
	if err := l.store.AppendMessage(ctx, &models.Message{
		SessionID: sess.ID,
		Role:      models.RoleUser,
		Content:   sess.UserPrompt,
	}); err != nil {
		return "", l.fail(ctx, sess, fmt.Errorf("agentloop: persist user message: %w", err))
	}

	tools, err := l.registry.AsProviderTools(l.provider)
	if err != nil {
		return "", l.fail(ctx, sess, fmt.Errorf("agentloop: build tool schemas: %w", err))
	}

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		history, err := l.store.GetHistory(ctx, sess.ID, 0)
		if err != nil {
			return "", l.fail(ctx, sess, fmt.Errorf("agentloop: load history: %w", err))
		}

		req := providers.CompletionRequest{
			Model:      sess.Model,
			Messages:   toWireMessages(sess.SystemPrompt, history),
			Tools:      tools,
			ToolChoice: providers.ToolChoice{Mode: "auto"},
		}

		resp, err := l.client.Complete(ctx, req)
		if err != nil {
			return "", l.fail(ctx, sess, fmt.Errorf("agentloop: adapter call: %w", err))
		}

		assistantMsg := &models.Message{
			SessionID: sess.ID,
			Role:      models.RoleAssistant,
			Content:   resp.Content,
		}
		for _, tc := range resp.ToolCalls {
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, models.ToolCallRef{
				CallID:    tc.ID,
				ToolName:  tc.Name,
				Arguments: tc.Arguments,
			})
		}
		if err := l.store.AppendMessage(ctx, assistantMsg); err != nil {
			return "", l.fail(ctx, sess, fmt.Errorf("agentloop: persist assistant message: %w", err))
		}

		if len(resp.ToolCalls) == 0 {
			// Empty assistant text with no tool calls is valid and terminal.
			l.metrics.AgentIterations.WithLabelValues(l.provider, "completed").Observe(float64(iteration + 1))
			return l.complete(ctx, sess, resp.Content)
		}

		if iteration == l.cfg.MaxIterations-1 {
			// No further turn would exist to consume a tool result, so
			// the cap must be hit here rather than after dispatching it.
			break
		}

		for _, tc := range resp.ToolCalls {
			if err := l.dispatchToolCall(ctx, sess, assistantMsg.ID, tc); err != nil {
				return "", l.fail(ctx, sess, err)
			}
		}
	}

	l.metrics.AgentIterations.WithLabelValues(l.provider, "iteration_cap").Observe(float64(l.cfg.MaxIterations))
	return "", l.fail(ctx, sess, ErrIterationCapExceeded)
}

func (l *Loop) dispatchToolCall(ctx context.Context, sess *models.Session, messageID string, tc providers.ToolCall) error {
	callID := tc.ID
	if callID == "" {
		callID = tc.Name // last-resort; adapters normally synthesize one
	}

	toolCall := &models.ToolCall{
		SessionID:      sess.ID,
		MessageID:      messageID,
		ExternalCallID: callID,
		ToolName:       tc.Name,
		Arguments:      tc.Arguments,
		Status:         models.ToolCallPending,
	}
	if err := l.store.CreateToolCall(ctx, toolCall); err != nil {
		return fmt.Errorf("agentloop: persist pending tool call: %w", err)
	}

	started := time.Now()
	resp := l.registry.Dispatch(ctx, tc.Name, tc.Arguments)
	toolCall.ExecutionTime = time.Since(started)
	toolCall.FinishedAt = time.Now()

	var toolMessageContent string
	if resp.Kind == toolregistry.KindError {
		toolCall.Status = models.ToolCallFailed
		toolCall.Error = resp.Message
		toolMessageContent = fmt.Sprintf("Tool %s failed: %s", tc.Name, resp.Message)
		l.metrics.ToolDuration.WithLabelValues(tc.Name, "failed").Observe(toolCall.ExecutionTime.Seconds())
	} else {
		toolCall.Status = models.ToolCallCompleted
		if data, err := json.Marshal(resp.Data); err == nil {
			toolCall.Response = data
		}
		toolMessageContent = toolregistry.FormatForModel(resp)
		l.metrics.ToolDuration.WithLabelValues(tc.Name, "completed").Observe(toolCall.ExecutionTime.Seconds())
	}

	if err := l.store.UpdateToolCall(ctx, toolCall); err != nil {
		return fmt.Errorf("agentloop: persist tool call result: %w", err)
	}

	return l.store.AppendMessage(ctx, &models.Message{
		SessionID:  sess.ID,
		Role:       models.RoleTool,
		Content:    toolMessageContent,
		ToolCallID: callID,
	})
}

func (l *Loop) complete(ctx context.Context, sess *models.Session, finalResult string) (string, error) {
	sess.Status = models.SessionCompleted
	sess.EndedAt = time.Now()
	sess.FinalResult = finalResult
	if err := l.store.Update(ctx, sess); err != nil {
		l.log.Error("agentloop: failed to persist completed session", "session_id", sess.ID, "error", err)
		return "", err
	}
	return finalResult, nil
}

func (l *Loop) fail(ctx context.Context, sess *models.Session, cause error) error {
	sess.Status = models.SessionFailed
	sess.EndedAt = time.Now()
	sess.Error = cause.Error()
	if err := l.store.Update(ctx, sess); err != nil {
		l.log.Error("agentloop: failed to persist failed session", "session_id", sess.ID, "error", err)
	}
	return cause
}

func toWireMessages(systemPrompt string, history []*models.Message) []providers.CompletionMessage {
	var out []providers.CompletionMessage
	if systemPrompt != "" {
		out = append(out, providers.CompletionMessage{Role: providers.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		wm := providers.CompletionMessage{
			Role:       providers.Role(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, providers.ToolCall{
				ID:        tc.CallID,
				Name:      tc.ToolName,
				Arguments: tc.Arguments,
			})
		}
		out = append(out, wm)
	}
	return out
}
