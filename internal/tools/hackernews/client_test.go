package hackernews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchItemParsesChildrenAndAuthor(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/item/1.json": `{"id":1,"by":"alice","kids":[2,3],"dead":false}`,
	})
	client := &Client{http: server.Client(), baseURL: server.URL}

	result, err := client.FetchItem(context.Background(), "item", 1)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "alice", result.AuthorID)
	require.Equal(t, []int64{2, 3}, result.ChildIDs)
	require.JSONEq(t, `{"id":1,"by":"alice","kids":[2,3],"dead":false}`, string(result.Payload))
}

func TestFetchItemReturnsNilForDeletedItem(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/item/2.json": `null`,
	})
	client := &Client{http: server.Client(), baseURL: server.URL}

	result, err := client.FetchItem(context.Background(), "item", 2)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestFetchItemReturnsNilForDeadItem(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/item/3.json": `{"id":3,"by":"bob","dead":true}`,
	})
	client := &Client{http: server.Client(), baseURL: server.URL}

	result, err := client.FetchItem(context.Background(), "item", 3)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestFetchStoryIDsRejectsUnknownStoryType(t *testing.T) {
	client := NewClient()
	_, err := client.FetchStoryIDs(context.Background(), StoryType("bogus"))
	require.Error(t, err)
}
