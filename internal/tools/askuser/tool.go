// Package askuser implements the ask_user tool. It never blocks on
// terminal I/O itself: executing it persists each question as a
// pending Setting and returns immediately, so a host process can
// surface the questions and answer them out of band (via whatever
// collects setting values for this session).
package askuser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brainless/nocodo-agentcore/internal/session"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// Tool raises clarification questions to a human via the session
// store's Setting records.
type Tool struct {
	store session.Store
}

// New creates an ask_user tool backed by store.
func New(store session.Store) *Tool {
	return &Tool{store: store}
}

func (t *Tool) Name() string        { return "ask_user" }
func (t *Tool) Description() string { return "Ask the user one or more clarification questions." }

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"key":         map[string]any{"type": "string", "description": "Unique identifier for this question within the session."},
						"name":        map[string]any{"type": "string", "description": "Short human-readable label."},
						"description": map[string]any{"type": "string"},
						"type":        map[string]any{"type": "string", "enum": []string{"text", "password", "file_path", "email", "url"}},
					},
					"required": []string{"key", "name"},
				},
			},
		},
		"required": []string{"session_id", "questions"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

type question struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func (t *Tool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		SessionID string     `json:"session_id"`
		Questions []question `json:"questions"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}
	if strings.TrimSpace(args.SessionID) == "" {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "session_id is required"), nil
	}
	if len(args.Questions) == 0 {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "at least one question is required"), nil
	}

	pending := make([]map[string]string, 0, len(args.Questions))
	for i, q := range args.Questions {
		if strings.TrimSpace(q.Key) == "" || strings.TrimSpace(q.Name) == "" {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(),
				fmt.Sprintf("questions[%d]: key and name are required", i)), nil
		}
		settingType := models.SettingType(q.Type)
		if settingType == "" {
			settingType = models.SettingText
		}

		now := time.Now().UTC()
		setting := &models.Setting{
			SessionID:   args.SessionID,
			Key:         q.Key,
			Name:        q.Name,
			Description: q.Description,
			Type:        settingType,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := t.store.PutSetting(ctx, setting); err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		pending = append(pending, map[string]string{"key": q.Key, "name": q.Name})
	}

	return toolregistry.Response{
		Kind:    "ask_user",
		Summary: fmt.Sprintf("Asked %d question(s); awaiting answers", len(pending)),
		Data: map[string]any{
			"session_id": args.SessionID,
			"pending":    pending,
		},
	}, nil
}
