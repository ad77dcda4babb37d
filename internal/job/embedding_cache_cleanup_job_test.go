package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	cutoff int64
	err    error
}

func (f *fakeCleaner) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestEmbeddingCacheCleanupJob(t *testing.T) {
	cleaner := &fakeCleaner{}
	j := NewEmbeddingCacheCleanupJob(cleaner, 2)
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	require.Equal(t, "embedding_cache_cleanup", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-48*time.Hour).Unix(), cleaner.cutoff)

	cleaner.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
}

func TestEmbeddingCacheCleanupJobDefaults(t *testing.T) {
	j := NewEmbeddingCacheCleanupJob(nil, 0)
	require.Equal(t, 30, j.maxAgeDays)
	require.NoError(t, j.Run(context.Background()))
}
