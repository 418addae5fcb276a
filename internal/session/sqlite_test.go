package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// setupMockStore wires a SQLiteStore to a mocked *sql.DB so the query
// shape can be asserted without touching a real database file.
func setupMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLiteStore{db: db}, mock
}

func TestSQLiteStoreCreateInsertsSession(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "agentcli", "openai", "gpt-4o-mini", sqlmock.AnyArg(), "hello",
			sqlmock.AnyArg(), models.SessionRunning, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sess := &models.Session{
		AgentName:  "agentcli",
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		UserPrompt: "hello",
	}
	err := store.Create(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, models.SessionRunning, sess.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreGetReturnsNotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT .* FROM sessions WHERE id = ?").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreGetScansSession(t *testing.T) {
	store, mock := setupMockStore(t)

	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "agent_name", "provider", "model", "system_prompt", "user_prompt",
		"config", "status", "started_at", "ended_at", "final_result", "error",
	}).AddRow("sess-1", "agentcli", "openai", "gpt-4o-mini", nil, "hello",
		nil, models.SessionCompleted, timeStr(started), nil, "done", nil)

	mock.ExpectQuery("SELECT .* FROM sessions WHERE id = ?").WithArgs("sess-1").WillReturnRows(rows)

	sess, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", sess.ID)
	require.Equal(t, models.SessionCompleted, sess.Status)
	require.Equal(t, "done", sess.FinalResult)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreUpdateReturnsNotFoundOnZeroRows(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("UPDATE sessions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &models.Session{ID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreDeleteCascadesRelatedTables(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("DELETE FROM sessions WHERE id = ?").WithArgs("sess-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM messages WHERE session_id = ?").WithArgs("sess-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM tool_calls WHERE session_id = ?").WithArgs("sess-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM settings WHERE session_id = ?").WithArgs("sess-1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
