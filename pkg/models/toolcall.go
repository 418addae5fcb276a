package models

import (
	"encoding/json"
	"time"
)

// ToolCallStatus is the lifecycle state of a ToolCall record.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallFailed    ToolCallStatus = "failed"
)

// ToolCall is the persisted record of a single tool invocation within a
// session. It has exactly one terminal transition: pending->completed or
// pending->failed. A completed or failed record is immutable.
type ToolCall struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	MessageID      string          `json:"message_id,omitempty"`
	ExternalCallID string          `json:"external_call_id"`
	ToolName       string          `json:"tool_name"`
	Arguments      json.RawMessage `json:"arguments"`
	Status         ToolCallStatus  `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at,omitempty"`
	ExecutionTime  time.Duration   `json:"execution_time_ms"`
	Response       json.RawMessage `json:"response,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Terminal reports whether the tool call has reached a terminal status.
func (t *ToolCall) Terminal() bool {
	return t.Status == ToolCallCompleted || t.Status == ToolCallFailed
}
