package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/formpilot/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "test-model" }

type mapStore struct {
	items   map[string]*model.EmbeddingCache
	readErr error
}

func (m *mapStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	item, ok := m.items[modelName+taskType+contentHash]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *mapStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item
	return nil
}

func TestLRUCache(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	first[0] = 99
	second, err := e.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, second)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "test-model", e.ModelName())
}

func TestLRUCacheDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
}

func TestDBCache(t *testing.T) {
	next := &countingEmbedder{}
	store := &mapStore{items: map[string]*model.EmbeddingCache{}}
	e := WrapDBCacheToEmbedder(next, store)
	ctx := context.Background()

	_, err := e.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	vec, err := e.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, vec)
	require.Equal(t, 1, next.calls)
	require.Len(t, store.items, 1)
	for _, item := range store.items {
		require.Equal(t, "test-model", item.ModelName)
		require.Len(t, item.ContentHash, 64)
	}
}

func TestDBCacheReadErrorFallsThrough(t *testing.T) {
	next := &countingEmbedder{}
	store := &mapStore{items: map[string]*model.EmbeddingCache{}, readErr: errors.New("db down")}
	e := WrapDBCacheToEmbedder(next, store)
	vec, err := e.Embed(context.Background(), "abc", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, vec)
	require.Equal(t, 1, next.calls)
}

func TestDBCachePropagatesEmbedError(t *testing.T) {
	boom := errors.New("quota")
	e := WrapDBCacheToEmbedder(&countingEmbedder{err: boom}, &mapStore{items: map[string]*model.EmbeddingCache{}})
	_, err := e.Embed(context.Background(), "abc", "RETRIEVAL_QUERY")
	require.ErrorIs(t, err, boom)
}
