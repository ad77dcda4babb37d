package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/formpilot/internal/ai"
	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/repo"
)

var objectIDPattern = regexp.MustCompile(`^form_\d+_[0-9a-z]{7}$`)

func TestNewObjectID(t *testing.T) {
	now := time.UnixMilli(1717171717171)
	id := newObjectID(now)
	require.Regexp(t, objectIDPattern, id)
	require.True(t, strings.HasPrefix(id, "form_1717171717171_"))
	require.NotEqual(t, id, newObjectID(now))
}

func longForm() *form.Map {
	m := form.NewMap()
	for _, key := range []string{"summary", "details", "notes"} {
		m.Set(key, form.String(strings.Repeat("Sentence about "+key+". ", 12)))
	}
	m.Set("empty", form.String(""))
	m.Set("zero", form.Int(0))
	return m
}

func TestIngestWritesOneVectorPerChunk(t *testing.T) {
	mem := repo.NewMemoryStore()
	embedder := newHashEmbedder()
	chunker := ai.NewChunker(ai.ChunkOptions{MaxLength: 120, Overlap: 10})
	svc := NewIngestService(mem, embedder, chunker)

	f := longForm()
	res := svc.Ingest(context.Background(), "notes", f)
	require.True(t, res.Success, res.Message)
	require.Equal(t, ingestSuccessMessage, res.Message)
	require.Regexp(t, objectIDPattern, res.ObjectID)

	chunks := chunker.Chunk(context.Background(), form.Project(form.Prune(f)))
	require.Greater(t, len(chunks), 1)
	require.Equal(t, len(chunks), embedder.calls)

	vectorIDs, err := mem.FindVectorIDs(context.Background(), repo.FieldObjectID, res.ObjectID)
	require.NoError(t, err)
	require.Len(t, vectorIDs, len(chunks))

	recs, err := mem.ListRecordsIn(context.Background(), repo.FieldObjectID, []string{res.ObjectID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, []string{"summary", "details", "notes"}, recs[0].Form.Keys())
	require.Equal(t, "notes", recs[0].Domain)
}

func TestIngestEmbeddingFailureWritesNothing(t *testing.T) {
	mem := repo.NewMemoryStore()
	embedder := newHashEmbedder()
	embedder.failAt = 1
	svc := NewIngestService(mem, embedder, ai.NewChunker(ai.ChunkOptions{MaxLength: 120, Overlap: 10}))

	res := svc.Ingest(context.Background(), "notes", longForm())
	require.False(t, res.Success)
	require.Contains(t, res.Message, ingestFailureMessage)
	require.Contains(t, res.Message, "embedding failure")

	recs, err := mem.ListRecordsByDomain(context.Background(), "notes")
	require.NoError(t, err)
	require.Empty(t, recs)
	ids, err := mem.FindVectorIDs(context.Background(), repo.FieldDomain, "notes")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIngestEmptyVectorIsEmbeddingFailure(t *testing.T) {
	embedder := newHashEmbedder()
	embedder.empty = true
	svc := NewIngestService(repo.NewMemoryStore(), embedder, ai.NewChunker(ai.ChunkOptions{}))
	res := svc.Ingest(context.Background(), "d", form.MustParse(`{"a":"b"}`))
	require.False(t, res.Success)
	require.Contains(t, res.Message, "embedding failure")
}

func TestIngestCommitFailureLeavesNoEntries(t *testing.T) {
	mem := repo.NewMemoryStore()
	store := &failingCommitStore{IndexStore: mem, err: errors.New("deadline exceeded")}
	svc := NewIngestService(store, newHashEmbedder(), ai.NewChunker(ai.ChunkOptions{}))

	res := svc.Ingest(context.Background(), "d", form.MustParse(`{"a":"<p>x</p>","b":"c"}`))
	require.False(t, res.Success)
	require.Contains(t, res.Message, "persistence failure")

	recs, err := mem.ListRecordsByDomain(context.Background(), "d")
	require.NoError(t, err)
	require.Empty(t, recs)
	ids, err := mem.FindVectorIDs(context.Background(), repo.FieldDomain, "d")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIngestRejectsEmptyInput(t *testing.T) {
	svc := NewIngestService(repo.NewMemoryStore(), newHashEmbedder(), ai.NewChunker(ai.ChunkOptions{}))
	res := svc.Ingest(context.Background(), "d", form.MustParse(`{"a":"","b":false,"c":{"d":[]}}`))
	require.False(t, res.Success)
	res = svc.Ingest(context.Background(), "", form.MustParse(`{"a":"b"}`))
	require.False(t, res.Success)
}
