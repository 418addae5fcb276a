package sqlitereader

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = db.Exec(`INSERT INTO widgets (name) VALUES (?)`, "widget")
		require.NoError(t, err)
	}
	return path
}

func TestSQLiteReaderRunsQuery(t *testing.T) {
	path := seedDB(t)
	tool := New(Config{})
	args, _ := json.Marshal(map[string]any{"path": path, "query": "SELECT id, name FROM widgets ORDER BY id"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "sqlite3_reader", resp.Kind)

	data := resp.Data.(map[string]any)
	require.Equal(t, 3, data["row_count"])
	require.False(t, data["truncated"].(bool))
}

func TestSQLiteReaderCapsRowLimit(t *testing.T) {
	path := seedDB(t)
	tool := New(Config{DefaultRowLimit: 2, MaxRowLimit: 2})
	args, _ := json.Marshal(map[string]any{"path": path, "query": "SELECT id FROM widgets"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	require.Equal(t, 2, data["row_count"])
	require.True(t, data["truncated"].(bool))
}

func TestSQLiteReaderMissingFileReturnsFileNotFound(t *testing.T) {
	tool := New(Config{})
	args, _ := json.Marshal(map[string]any{"path": "/nonexistent/foo.db", "query": "SELECT 1"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrFileNotFound, resp.ErrorKind)
}
