package askuser

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/internal/session"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

func TestAskUserPersistsPendingSettings(t *testing.T) {
	store := session.NewMemoryStore()
	tool := New(store)

	args, _ := json.Marshal(map[string]any{
		"session_id": "sess-1",
		"questions": []map[string]string{
			{"key": "api_key", "name": "API Key", "type": "password"},
		},
	})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "ask_user", resp.Kind)

	setting, err := store.GetSetting(context.Background(), "sess-1", "api_key")
	require.NoError(t, err)
	require.False(t, setting.Answered())
}

func TestAskUserRejectsEmptyQuestions(t *testing.T) {
	store := session.NewMemoryStore()
	tool := New(store)

	args, _ := json.Marshal(map[string]any{"session_id": "sess-1", "questions": []map[string]string{}})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrInvalidArguments, resp.ErrorKind)
}
