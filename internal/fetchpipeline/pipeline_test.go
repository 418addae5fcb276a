package fetchpipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	items map[string]map[int64][]byte
	users map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]map[int64][]byte), users: make(map[string][]byte)}
}

func (s *memStore) ItemExists(ctx context.Context, kind string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[kind][id]
	return ok, nil
}
func (s *memStore) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}
func (s *memStore) SaveItem(ctx context.Context, kind string, id int64, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[kind] == nil {
		s.items[kind] = make(map[int64][]byte)
	}
	s.items[kind][id] = payload
	return nil
}
func (s *memStore) SaveUser(ctx context.Context, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = payload
	return nil
}
func (s *memStore) EnqueueItems(ctx context.Context, kind string, ids []int64, depth int) error {
	return nil
}
func (s *memStore) DequeueItems(ctx context.Context, kind string, ids []int64) error { return nil }
func (s *memStore) MaxItemID(ctx context.Context, kind string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for id := range s.items[kind] {
		if id > max {
			max = id
		}
	}
	return max, nil
}
func (s *memStore) Close() error { return nil }

type fakeFetcher struct {
	children map[int64][]int64
}

func (f *fakeFetcher) FetchItem(ctx context.Context, kind string, id int64) (*ItemResult, error) {
	return &ItemResult{
		Payload:  []byte(fmt.Sprintf(`{"id":%d}`, id)),
		ChildIDs: f.children[id],
	}, nil
}

func (f *fakeFetcher) FetchUser(ctx context.Context, id string) ([]byte, error) {
	return []byte(`{"id":"` + id + `"}`), nil
}

func TestPipelineRespectsMaxDepth(t *testing.T) {
	fetcher := &fakeFetcher{children: map[int64][]int64{
		100: {101, 102},
		101: {103},
		102: {104},
	}}
	store := newMemStore()
	p := New(store, fetcher, Config{BatchSize: 10, MaxDepth: 1}, nil)

	stats, err := p.Run(context.Background(), "item", []int64{100})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Downloaded)
	require.Equal(t, 0, stats.Skipped)
	require.Equal(t, 0, stats.Failed)

	for _, id := range []int64{100, 101, 102} {
		exists, err := store.ItemExists(context.Background(), "item", id)
		require.NoError(t, err)
		require.True(t, exists, "item %d should be fetched", id)
	}
	for _, id := range []int64{103, 104} {
		exists, err := store.ItemExists(context.Background(), "item", id)
		require.NoError(t, err)
		require.False(t, exists, "item %d is beyond max_depth and must not be fetched", id)
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{children: map[int64][]int64{}}
	store := newMemStore()
	p := New(store, fetcher, Config{BatchSize: 10, MaxDepth: 5}, nil)

	_, err := p.Run(context.Background(), "item", []int64{1, 2, 3})
	require.NoError(t, err)

	stats, err := p.Run(context.Background(), "item", []int64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 0, stats.Downloaded)
	require.Equal(t, 3, stats.Skipped)
}
