package models

import "time"

// SettingType constrains how a clarification Setting's value should be
// collected and displayed by the host (e.g. masking a password field).
type SettingType string

const (
	SettingText     SettingType = "text"
	SettingPassword SettingType = "password"
	SettingFilePath SettingType = "file_path"
	SettingEmail    SettingType = "email"
	SettingURL      SettingType = "url"
)

// Setting is a clarification slot raised by the ask_user tool and
// persisted alongside the session that asked for it. A pending setting
// has Value == nil; answering it sets Value and moves UpdatedAt forward.
// The pair (SessionID, Key) is unique.
type Setting struct {
	SessionID   string      `json:"session_id"`
	Key         string      `json:"setting_key"`
	Name        string      `json:"setting_name"`
	Description string      `json:"description,omitempty"`
	Type        SettingType `json:"setting_type"`
	Value       *string     `json:"setting_value,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ToolCallID  string      `json:"tool_call_id,omitempty"`
}

// Answered reports whether the setting has received a value.
func (s *Setting) Answered() bool {
	return s.Value != nil
}
