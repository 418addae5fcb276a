package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/brainless/nocodo-agentcore/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	agent_name    TEXT NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	system_prompt TEXT,
	user_prompt   TEXT NOT NULL,
	config        TEXT,
	status        TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	ended_at      TEXT,
	final_result  TEXT,
	error         TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	sequence     INTEGER NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT,
	tool_call_id TEXT,
	tool_calls   TEXT,
	created_at   TEXT NOT NULL,
	UNIQUE(session_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, sequence);

CREATE TABLE IF NOT EXISTS tool_calls (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL REFERENCES sessions(id),
	message_id       TEXT,
	external_call_id TEXT NOT NULL,
	tool_name        TEXT NOT NULL,
	arguments        TEXT,
	status           TEXT NOT NULL,
	started_at       TEXT NOT NULL,
	finished_at      TEXT,
	execution_time   INTEGER,
	response         TEXT,
	error            TEXT
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id);

CREATE TABLE IF NOT EXISTS settings (
	session_id   TEXT NOT NULL,
	key          TEXT NOT NULL,
	name         TEXT NOT NULL,
	description  TEXT,
	type         TEXT NOT NULL,
	value        TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	tool_call_id TEXT,
	PRIMARY KEY (session_id, key)
);
`

// SQLiteStore implements Store on an embedded SQLite database via the
// pure-Go modernc.org/sqlite driver. Writes are serialized through mu,
// matching SQLite's single-writer model rather than fighting it with
// busy-retry loops.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (and migrates) a session store at path. Use
// ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite allows one writer; avoid pool contention on writes

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = models.SessionRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, agent_name, provider, model, system_prompt, user_prompt, config, status, started_at, ended_at, final_result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AgentName, sess.Provider, sess.Model, sess.SystemPrompt, sess.UserPrompt,
		nullableJSON(sess.Config), sess.Status, timeStr(sess.StartedAt), nullTimeStr(sess.EndedAt),
		nullString(sess.FinalResult), nullString(sess.Error))
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_name, provider, model, system_prompt, user_prompt, config, status, started_at, ended_at, final_result, error
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SQLiteStore) Update(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET provider=?, model=?, system_prompt=?, user_prompt=?, config=?, status=?, ended_at=?, final_result=?, error=?
		WHERE id=?`,
		sess.Provider, sess.Model, sess.SystemPrompt, sess.UserPrompt, nullableJSON(sess.Config),
		sess.Status, nullTimeStr(sess.EndedAt), nullString(sess.FinalResult), nullString(sess.Error), sess.ID)
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id)
	_, _ = s.db.ExecContext(ctx, `DELETE FROM tool_calls WHERE session_id = ?`, id)
	_, _ = s.db.ExecContext(ctx, `DELETE FROM settings WHERE session_id = ?`, id)
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]*models.Session, error) {
	query := `SELECT id, agent_name, provider, model, system_prompt, user_prompt, config, status, started_at, ended_at, final_result, error FROM sessions`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY started_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	var seq int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE session_id = ?`, msg.SessionID).Scan(&seq); err != nil {
		return fmt.Errorf("session: next sequence: %w", err)
	}
	msg.Sequence = seq

	toolCalls, err := json.Marshal(msg.ToolCalls)
	if err != nil {
		return fmt.Errorf("session: marshal tool calls: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, sequence, role, content, tool_call_id, tool_calls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Sequence, msg.Role, msg.Content, nullString(msg.ToolCallID), string(toolCalls), timeStr(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("session: append message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	query := `SELECT id, session_id, sequence, role, content, tool_call_id, tool_calls, created_at FROM messages WHERE session_id = ? ORDER BY sequence ASC`
	args := []any{sessionID}
	if limit > 0 {
		query = `SELECT * FROM (` + query + ` DESC LIMIT ?) ORDER BY sequence ASC`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("session: get history: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var msg models.Message
		var toolCallID sql.NullString
		var toolCalls string
		var created string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sequence, &msg.Role, &msg.Content, &toolCallID, &toolCalls, &created); err != nil {
			return nil, fmt.Errorf("session: scan message: %w", err)
		}
		msg.ToolCallID = toolCallID.String
		msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		if toolCalls != "" {
			_ = json.Unmarshal([]byte(toolCalls), &msg.ToolCalls)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateToolCall(ctx context.Context, tc *models.ToolCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	if tc.StartedAt.IsZero() {
		tc.StartedAt = time.Now()
	}
	if tc.Status == "" {
		tc.Status = models.ToolCallPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, session_id, message_id, external_call_id, tool_name, arguments, status, started_at, finished_at, execution_time, response, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ID, tc.SessionID, nullString(tc.MessageID), tc.ExternalCallID, tc.ToolName, string(tc.Arguments),
		tc.Status, timeStr(tc.StartedAt), nullTimeStr(tc.FinishedAt), int64(tc.ExecutionTime), string(tc.Response), nullString(tc.Error))
	if err != nil {
		return fmt.Errorf("session: create tool call: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateToolCall(ctx context.Context, tc *models.ToolCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE tool_calls SET status=?, finished_at=?, execution_time=?, response=?, error=?
		WHERE id = ?`,
		tc.Status, nullTimeStr(tc.FinishedAt), int64(tc.ExecutionTime), string(tc.Response), nullString(tc.Error), tc.ID)
	if err != nil {
		return fmt.Errorf("session: update tool call: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetToolCall(ctx context.Context, id string) (*models.ToolCall, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, message_id, external_call_id, tool_name, arguments, status, started_at, finished_at, execution_time, response, error
		FROM tool_calls WHERE id = ?`, id)
	return scanToolCall(row)
}

func (s *SQLiteStore) ListToolCalls(ctx context.Context, sessionID string) ([]*models.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, message_id, external_call_id, tool_name, arguments, status, started_at, finished_at, execution_time, response, error
		FROM tool_calls WHERE session_id = ? ORDER BY started_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: list tool calls: %w", err)
	}
	defer rows.Close()

	var out []*models.ToolCall
	for rows.Next() {
		tc, err := scanToolCallRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutSetting(ctx context.Context, set *models.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timeStr(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (session_id, key, name, description, type, value, created_at, updated_at, tool_call_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			name=excluded.name, description=excluded.description, type=excluded.type,
			value=excluded.value, updated_at=excluded.updated_at, tool_call_id=excluded.tool_call_id`,
		set.SessionID, set.Key, set.Name, set.Description, set.Type, nullableValue(set.Value), now, now, nullString(set.ToolCallID))
	if err != nil {
		return fmt.Errorf("session: put setting: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSetting(ctx context.Context, sessionID, key string) (*models.Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, key, name, description, type, value, created_at, updated_at, tool_call_id
		FROM settings WHERE session_id = ? AND key = ?`, sessionID, key)
	return scanSetting(row)
}

func (s *SQLiteStore) ListSettings(ctx context.Context, sessionID string) ([]*models.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, key, name, description, type, value, created_at, updated_at, tool_call_id
		FROM settings WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: list settings: %w", err)
	}
	defer rows.Close()

	var out []*models.Setting
	for rows.Next() {
		set, err := scanSettingRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

// --- scanning helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (*models.Session, error) {
	return scanSessionRow(r)
}

func scanSessionRow(r scanner) (*models.Session, error) {
	var sess models.Session
	var systemPrompt, config, endedAt, finalResult, errStr sql.NullString
	var started string
	if err := r.Scan(&sess.ID, &sess.AgentName, &sess.Provider, &sess.Model, &systemPrompt, &sess.UserPrompt,
		&config, &sess.Status, &started, &endedAt, &finalResult, &errStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: scan: %w", err)
	}
	sess.SystemPrompt = systemPrompt.String
	sess.FinalResult = finalResult.String
	sess.Error = errStr.String
	if config.Valid {
		sess.Config = json.RawMessage(config.String)
	}
	sess.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if endedAt.Valid {
		sess.EndedAt, _ = time.Parse(time.RFC3339Nano, endedAt.String)
	}
	return &sess, nil
}

func scanToolCall(r scanner) (*models.ToolCall, error) {
	return scanToolCallRow(r)
}

func scanToolCallRow(r scanner) (*models.ToolCall, error) {
	var tc models.ToolCall
	var messageID, finishedAt, response, errStr sql.NullString
	var args string
	var started string
	var execNanos int64
	if err := r.Scan(&tc.ID, &tc.SessionID, &messageID, &tc.ExternalCallID, &tc.ToolName, &args, &tc.Status,
		&started, &finishedAt, &execNanos, &response, &errStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: scan tool call: %w", err)
	}
	tc.MessageID = messageID.String
	tc.Error = errStr.String
	tc.Arguments = json.RawMessage(args)
	if response.Valid {
		tc.Response = json.RawMessage(response.String)
	}
	tc.ExecutionTime = time.Duration(execNanos)
	tc.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finishedAt.Valid {
		tc.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt.String)
	}
	return &tc, nil
}

func scanSetting(r scanner) (*models.Setting, error) {
	return scanSettingRow(r)
}

func scanSettingRow(r scanner) (*models.Setting, error) {
	var s models.Setting
	var description, value, toolCallID sql.NullString
	var created, updated string
	if err := r.Scan(&s.SessionID, &s.Key, &s.Name, &description, &s.Type, &value, &created, &updated, &toolCallID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: scan setting: %w", err)
	}
	s.Description = description.String
	s.ToolCallID = toolCallID.String
	if value.Valid {
		v := value.String
		s.Value = &v
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &s, nil
}

func timeStr(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTimeStr(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: timeStr(t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func nullableValue(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
