package models

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle state of an agent run.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session represents a single agent run: the configuration it was started
// with, its lifecycle status, and (once terminal) its result or error.
//
// A Session owns its Messages and ToolCalls by SessionID; deleting the
// session destroys them.
type Session struct {
	ID           string          `json:"id"`
	AgentName    string          `json:"agent_name"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	UserPrompt   string          `json:"user_prompt"`
	Config       json.RawMessage `json:"config,omitempty"`
	Status       SessionStatus   `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	EndedAt      time.Time       `json:"ended_at,omitempty"`
	FinalResult  string          `json:"final_result,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Terminal reports whether the session has reached a terminal status.
func (s *Session) Terminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionFailed
}
