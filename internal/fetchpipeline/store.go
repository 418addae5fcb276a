// Package fetchpipeline implements a generic, depth-bounded concurrent
// fetch pipeline: given a seed set of external-object ids, it
// downloads each, persists it, then recursively downloads referenced
// children up to a configured depth. HackerNews is the exemplar
// consumer (internal/tools/hackernews), but nothing here is
// HackerNews-specific.
package fetchpipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists fetched items and users, and tracks in-flight work so
// a crash mid-batch leaves queued-but-incomplete ids visible and
// retryable on restart. All writes are upserts, making the pipeline
// idempotent by id.
type Store interface {
	ItemExists(ctx context.Context, kind string, id int64) (bool, error)
	UserExists(ctx context.Context, id string) (bool, error)
	SaveItem(ctx context.Context, kind string, id int64, payload []byte) error
	SaveUser(ctx context.Context, id string, payload []byte) error
	EnqueueItems(ctx context.Context, kind string, ids []int64, depth int) error
	DequeueItems(ctx context.Context, kind string, ids []int64) error
	MaxItemID(ctx context.Context, kind string) (int64, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS fetch_items (
	kind TEXT NOT NULL,
	id INTEGER NOT NULL,
	payload TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE TABLE IF NOT EXISTS fetch_users (
	id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fetch_queue (
	kind TEXT NOT NULL,
	id INTEGER NOT NULL,
	depth INTEGER NOT NULL,
	queued_at TEXT NOT NULL,
	PRIMARY KEY (kind, id)
);
`

// SQLiteStore is the pipeline's durable work table and item/user
// store, backed by embedded SQLite (pure Go driver; separate from the
// read-only mattn/go-sqlite3 driver the sqlite3_reader tool uses on
// arbitrary caller-supplied files).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite file at path
// and ensures the pipeline's tables exist.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("fetchpipeline: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("fetchpipeline: migrate %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ItemExists(ctx context.Context, kind string, id int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_items WHERE kind = ? AND id = ?`, kind, id).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) UserExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_users WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) SaveItem(ctx context.Context, kind string, id int64, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_items (kind, id, payload, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		kind, id, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) SaveUser(ctx context.Context, id string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_users (id, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		id, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) EnqueueItems(ctx context.Context, kind string, ids []int64, depth int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO fetch_queue (kind, id, depth, queued_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(kind, id) DO UPDATE SET depth = excluded.depth, queued_at = excluded.queued_at`,
			kind, id, depth, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) DequeueItems(ctx context.Context, kind string, ids []int64) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM fetch_queue WHERE kind = ? AND id = ?`, kind, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) MaxItemID(ctx context.Context, kind string) (int64, error) {
	var maxID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM fetch_items WHERE kind = ?`, kind).Scan(&maxID)
	if err != nil {
		return 0, err
	}
	return maxID.Int64, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
