// Package session persists agent runs, their transcripts, tool call
// records and clarification settings behind a single Store interface with
// pluggable backends.
package session

import (
	"context"

	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// Store is the interface for session persistence. Implementations must
// serialize writes to a given session so that Sequence numbers and status
// transitions stay consistent under concurrent callers.
type Store interface {
	// Session CRUD
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]*models.Session, error)

	// Transcript
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)

	// Tool calls
	CreateToolCall(ctx context.Context, tc *models.ToolCall) error
	UpdateToolCall(ctx context.Context, tc *models.ToolCall) error
	GetToolCall(ctx context.Context, id string) (*models.ToolCall, error)
	ListToolCalls(ctx context.Context, sessionID string) ([]*models.ToolCall, error)

	// Settings (ask_user clarification slots)
	PutSetting(ctx context.Context, s *models.Setting) error
	GetSetting(ctx context.Context, sessionID, key string) (*models.Setting, error)
	ListSettings(ctx context.Context, sessionID string) ([]*models.Setting, error)

	Close() error
}

// ListOptions configures session listing.
type ListOptions struct {
	Status models.SessionStatus
	Limit  int
	Offset int
}

// ErrNotFound is returned when a lookup by id/key finds nothing.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "session: not found" }
