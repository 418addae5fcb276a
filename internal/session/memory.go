package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// maxMessagesPerSession bounds transcript growth held in memory.
const maxMessagesPerSession = 1000

// MemoryStore is an in-memory Store for tests and local runs. Every
// accessor hands back a clone so callers can't mutate shared state.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*models.Session
	messages  map[string][]*models.Message
	toolCalls map[string][]*models.ToolCall
	settings  map[string]map[string]*models.Setting
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  map[string]*models.Session{},
		messages:  map[string][]*models.Message{},
		toolCalls: map[string][]*models.ToolCall{},
		settings:  map[string]map[string]*models.Setting{},
	}
}

func (m *MemoryStore) Create(ctx context.Context, s *models.Session) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *s
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.StartedAt.IsZero() {
		clone.StartedAt = time.Now()
	}
	if clone.Status == "" {
		clone.Status = models.SessionRunning
	}
	s.ID = clone.ID
	s.StartedAt = clone.StartedAt
	s.Status = clone.Status
	m.sessions[clone.ID] = &clone
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MemoryStore) Update(ctx context.Context, s *models.Session) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	clone := *s
	clone.StartedAt = existing.StartedAt
	m.sessions[clone.ID] = &clone
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	delete(m.toolCalls, id)
	delete(m.settings, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	end := len(out)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	if start > len(out) {
		return []*models.Session{}, nil
	}
	return out[start:end], nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("session: nil message")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[msg.SessionID]; !ok {
		return ErrNotFound
	}
	clone := *msg
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	clone.Sequence = len(m.messages[msg.SessionID]) + 1
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &clone)
	msg.ID = clone.ID
	msg.Sequence = clone.Sequence
	msg.CreatedAt = clone.CreatedAt

	if len(m.messages[msg.SessionID]) > maxMessagesPerSession {
		excess := len(m.messages[msg.SessionID]) - maxMessagesPerSession
		m.messages[msg.SessionID] = m.messages[msg.SessionID][excess:]
	}
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[sessionID]
	start := 0
	if limit > 0 && len(msgs) > limit {
		start = len(msgs) - limit
	}
	out := make([]*models.Message, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		clone := *msg
		out = append(out, &clone)
	}
	return out, nil
}

func (m *MemoryStore) CreateToolCall(ctx context.Context, tc *models.ToolCall) error {
	if tc == nil {
		return fmt.Errorf("session: nil tool call")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *tc
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.StartedAt.IsZero() {
		clone.StartedAt = time.Now()
	}
	if clone.Status == "" {
		clone.Status = models.ToolCallPending
	}
	tc.ID = clone.ID
	tc.StartedAt = clone.StartedAt
	tc.Status = clone.Status
	m.toolCalls[clone.SessionID] = append(m.toolCalls[clone.SessionID], &clone)
	return nil
}

func (m *MemoryStore) UpdateToolCall(ctx context.Context, tc *models.ToolCall) error {
	if tc == nil {
		return fmt.Errorf("session: nil tool call")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := m.toolCalls[tc.SessionID]
	for i, existing := range calls {
		if existing.ID == tc.ID {
			clone := *tc
			clone.StartedAt = existing.StartedAt
			calls[i] = &clone
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetToolCall(ctx context.Context, id string) (*models.ToolCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, calls := range m.toolCalls {
		for _, tc := range calls {
			if tc.ID == id {
				clone := *tc
				return &clone, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListToolCalls(ctx context.Context, sessionID string) ([]*models.ToolCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := m.toolCalls[sessionID]
	out := make([]*models.ToolCall, 0, len(calls))
	for _, tc := range calls {
		clone := *tc
		out = append(out, &clone)
	}
	return out, nil
}

func (m *MemoryStore) PutSetting(ctx context.Context, s *models.Setting) error {
	if s == nil {
		return fmt.Errorf("session: nil setting")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *s
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	clone.UpdatedAt = time.Now()
	if m.settings[s.SessionID] == nil {
		m.settings[s.SessionID] = map[string]*models.Setting{}
	}
	if existing, ok := m.settings[s.SessionID][s.Key]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	m.settings[s.SessionID][s.Key] = &clone
	return nil
}

func (m *MemoryStore) GetSetting(ctx context.Context, sessionID, key string) (*models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[sessionID][key]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MemoryStore) ListSettings(ctx context.Context, sessionID string) ([]*models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Setting, 0, len(m.settings[sessionID]))
	for _, s := range m.settings[sessionID] {
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
