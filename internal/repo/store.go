package repo

import (
	"context"
	"strings"

	"github.com/xxxsen/formpilot/internal/model"
)

// MaxInSetSize bounds the values of one ListRecordsIn call.
const MaxInSetSize = 10

const (
	FieldObjectID   = "objectId"
	FieldDomain     = "domain"
	FormFieldPrefix = "form."
)

type Filter struct {
	Domain string
}

type Part struct {
	Text string `json:"text"`
}

// Hit is one nearest neighbour. Content is always
// [{Text: objectId}, {Text: timestampMs}].
type Hit struct {
	Content []Part `json:"content"`
}

type VectorIndex interface {
	Query(ctx context.Context, queryText string, filter Filter, limit int) ([]Hit, error)
}

// IndexStore holds the raw form collection and the chunk vector collection.
// Timestamps are assigned by the store when a batch is committed.
type IndexStore interface {
	Commit(ctx context.Context, batch *Batch) error
	// FindVectorIDs matches a form.<path> field through the owning raw entries.
	FindVectorIDs(ctx context.Context, field string, value string) ([]string, error)
	FindRecordIDs(ctx context.Context, field string, value string) ([]string, error)
	ListRecordsIn(ctx context.Context, field string, values []string) ([]model.RawRecord, error)
	ListRecordsByDomain(ctx context.Context, domain string) ([]model.RawRecord, error)
	SearchVectors(ctx context.Context, embedding []float32, filter Filter, limit int) ([]model.VectorMatch, error)
}

// Batch collects writes that are committed all or nothing.
type Batch struct {
	vectors       []model.VectorEntry
	records       []model.RawRecord
	vectorDeletes []string
	recordDeletes []string
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) PutVector(entry model.VectorEntry) {
	b.vectors = append(b.vectors, entry)
}

func (b *Batch) PutRecord(record model.RawRecord) {
	b.records = append(b.records, record)
}

func (b *Batch) DeleteVector(id string) {
	b.vectorDeletes = append(b.vectorDeletes, id)
}

func (b *Batch) DeleteRecord(id string) {
	b.recordDeletes = append(b.recordDeletes, id)
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.vectors) + len(b.records) + len(b.vectorDeletes) + len(b.recordDeletes)
}

// formPath returns the nested key path for "form.a.b" style fields.
func formPath(field string) ([]string, bool) {
	if !strings.HasPrefix(field, FormFieldPrefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(field, FormFieldPrefix)
	if rest == "" {
		return nil, false
	}
	return strings.Split(rest, "."), true
}
