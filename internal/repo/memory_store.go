package repo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
)

type MemoryOption func(*MemoryStore)

// WithClock replaces the commit time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// MemoryStore keeps both collections in process. Stored records are shared
// with callers and must not be modified.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	vectors     map[string]model.VectorEntry
	vectorOrder []string
	records     map[string]model.RawRecord
	recordOrder []string
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:     time.Now,
		vectors: make(map[string]model.VectorEntry),
		records: make(map[string]model.RawRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Commit(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := make(map[string]bool, len(batch.recordDeletes))
	for _, id := range batch.recordDeletes {
		deleted[id] = true
	}
	taken := make(map[string]bool, len(s.records))
	for id, rec := range s.records {
		if !deleted[id] {
			taken[rec.ObjectID] = true
		}
	}
	for _, rec := range batch.records {
		if taken[rec.ObjectID] {
			return fmt.Errorf("object id %s already stored: %w", rec.ObjectID, appErr.ErrConflict)
		}
		taken[rec.ObjectID] = true
	}

	ts := s.now().UnixMilli()
	for _, id := range batch.vectorDeletes {
		delete(s.vectors, id)
	}
	for _, id := range batch.recordDeletes {
		delete(s.records, id)
	}
	s.vectorOrder = compact(s.vectorOrder, func(id string) bool { _, ok := s.vectors[id]; return ok })
	s.recordOrder = compact(s.recordOrder, func(id string) bool { _, ok := s.records[id]; return ok })
	for _, entry := range batch.vectors {
		entry.Timestamp = ts
		if _, ok := s.vectors[entry.ID]; !ok {
			s.vectorOrder = append(s.vectorOrder, entry.ID)
		}
		s.vectors[entry.ID] = entry
	}
	for _, rec := range batch.records {
		rec.Timestamp = ts
		if _, ok := s.records[rec.ID]; !ok {
			s.recordOrder = append(s.recordOrder, rec.ID)
		}
		s.records[rec.ID] = rec
	}
	return nil
}

func (s *MemoryStore) FindVectorIDs(ctx context.Context, field string, value string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owners map[string]struct{}
	if _, ok := formPath(field); ok {
		owners = make(map[string]struct{})
		for _, rid := range s.recordOrder {
			if rec := s.records[rid]; recordMatches(rec, field, value) {
				owners[rec.ObjectID] = struct{}{}
			}
		}
	}
	var ids []string
	for _, id := range s.vectorOrder {
		entry := s.vectors[id]
		switch field {
		case FieldObjectID:
			if entry.ObjectID == value {
				ids = append(ids, id)
			}
		case FieldDomain:
			if entry.Domain == value {
				ids = append(ids, id)
			}
		default:
			if _, ok := owners[entry.ObjectID]; ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *MemoryStore) FindRecordIDs(ctx context.Context, field string, value string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, id := range s.recordOrder {
		if recordMatches(s.records[id], field, value) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) ListRecordsIn(ctx context.Context, field string, values []string) ([]model.RawRecord, error) {
	if len(values) > MaxInSetSize {
		return nil, fmt.Errorf("%d values: %w", len(values), appErr.ErrInSetTooLarge)
	}
	if _, ok := recordColumn(field); !ok {
		return nil, fmt.Errorf("unsupported in-set field %q: %w", field, appErr.ErrInvalid)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RawRecord
	for _, id := range s.recordOrder {
		rec := s.records[id]
		for _, v := range values {
			if recordMatches(rec, field, v) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRecordsByDomain(ctx context.Context, domain string) ([]model.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RawRecord
	for _, id := range s.recordOrder {
		if rec := s.records[id]; rec.Domain == domain {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) SearchVectors(ctx context.Context, embedding []float32, filter Filter, limit int) ([]model.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []model.VectorMatch
	for _, id := range s.vectorOrder {
		entry := s.vectors[id]
		if filter.Domain != "" && entry.Domain != filter.Domain {
			continue
		}
		matches = append(matches, model.VectorMatch{
			ObjectID:    entry.ObjectID,
			TimestampMs: entry.Timestamp,
			Distance:    cosineDistance(embedding, entry.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func recordMatches(rec model.RawRecord, field string, value string) bool {
	switch field {
	case FieldObjectID:
		return rec.ObjectID == value
	case FieldDomain:
		return rec.Domain == value
	}
	path, ok := formPath(field)
	if !ok {
		return false
	}
	v, ok := rec.Form.Lookup(path...)
	if !ok {
		return false
	}
	switch v.Kind() {
	case form.KindString, form.KindNumber, form.KindBool:
		return v.Text() == value
	}
	return false
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func compact(ids []string, keep func(string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
