package hackernews

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/internal/fetchpipeline"
)

func newHNTestTool(t *testing.T, routes map[string]string) (*Tool, *fetchpipeline.SQLiteStore) {
	t.Helper()
	server := newTestServer(t, routes)

	store, err := fetchpipeline.NewSQLiteStore(t.TempDir() + "/hn.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tool := New(store, Config{BatchSize: 10, MaxDepth: 2, RequestsPerSecond: 1000, Burst: 10}, nil)
	tool.client = &Client{http: server.Client(), baseURL: server.URL}
	return tool, store
}

func TestHackerNewsToolStoryTypeMode(t *testing.T) {
	tool, store := newHNTestTool(t, map[string]string{
		"/topstories.json": `[1,2]`,
		"/item/1.json":     `{"id":1,"by":"alice","kids":[]}`,
		"/item/2.json":     `{"id":2,"by":"bob","kids":[]}`,
		"/user/alice.json": `{"id":"alice"}`,
		"/user/bob.json":   `{"id":"bob"}`,
	})

	args, err := json.Marshal(map[string]any{"mode": "story_type", "story_type": "top"})
	require.NoError(t, err)

	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "hackernews", resp.Kind)

	exists, err := store.ItemExists(context.Background(), "item", 1)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestHackerNewsToolRejectsUnknownMode(t *testing.T) {
	tool, _ := newHNTestTool(t, nil)
	args, _ := json.Marshal(map[string]any{"mode": "bogus"})

	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "error", resp.Kind)
}

func TestHackerNewsToolFetchAllMode(t *testing.T) {
	tool, store := newHNTestTool(t, map[string]string{
		"/maxitem.json":    `5`,
		"/item/4.json":     `{"id":4,"by":"carol","kids":[]}`,
		"/item/5.json":     `{"id":5,"by":"carol","kids":[]}`,
		"/user/carol.json": `{"id":"carol"}`,
	})
	tool.cfg.BatchSize = 2

	args, _ := json.Marshal(map[string]any{"mode": "fetch_all", "batch_size": 2})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "hackernews", resp.Kind)

	exists, err := store.ItemExists(context.Background(), "item", 5)
	require.NoError(t, err)
	require.True(t, exists)
}
