package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/xxxsen/formpilot/internal/model"
	"github.com/xxxsen/formpilot/internal/repo"
)

// hashEmbedder maps words into a small bag-of-words vector.
type hashEmbedder struct {
	mu     sync.Mutex
	calls  int
	failAt int
	empty  bool
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{failAt: -1}
}

func (h *hashEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	h.mu.Lock()
	call := h.calls
	h.calls++
	h.mu.Unlock()
	if call == h.failAt {
		return nil, errors.New("embedding quota exceeded")
	}
	if h.empty {
		return nil, nil
	}
	vec := make([]float32, 32)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(word))
		vec[f.Sum32()%32]++
	}
	return vec, nil
}

func (h *hashEmbedder) ModelName() string { return "hash" }

type failingCommitStore struct {
	repo.IndexStore
	err error
	// failWhen limits failures to batches matching the predicate.
	failWhen func(b *repo.Batch) bool
}

func (f *failingCommitStore) Commit(ctx context.Context, b *repo.Batch) error {
	if f.failWhen == nil || f.failWhen(b) {
		return f.err
	}
	return f.IndexStore.Commit(ctx, b)
}

type countingStore struct {
	*repo.MemoryStore
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (c *countingStore) ListRecordsIn(ctx context.Context, field string, values []string) ([]model.RawRecord, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), values...))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.MemoryStore.ListRecordsIn(ctx, field, values)
}

type staticIndex struct {
	hits    []repo.Hit
	err     error
	queries []string
	filters []repo.Filter
}

func (s *staticIndex) Query(ctx context.Context, queryText string, filter repo.Filter, limit int) ([]repo.Hit, error) {
	s.queries = append(s.queries, queryText)
	s.filters = append(s.filters, filter)
	return s.hits, s.err
}

func hit(objectID, ts string) repo.Hit {
	return repo.Hit{Content: []repo.Part{{Text: objectID}, {Text: ts}}}
}

type stubGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.answer, s.err
}

type staticRetriever struct {
	forms []model.FormInput
	err   error
}

func (s *staticRetriever) Retrieve(ctx context.Context, current model.FormInput) ([]model.FormInput, error) {
	return s.forms, s.err
}
