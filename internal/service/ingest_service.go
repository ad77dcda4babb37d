package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/ai"
	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
	"github.com/xxxsen/formpilot/internal/repo"
)

const (
	ingestSuccessMessage = "Successfully saved form."
	ingestFailureMessage = "Something went wrong with saving the form."
)

type IngestResult struct {
	ObjectID string `json:"objectId"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

type IngestService struct {
	store    repo.IndexStore
	embedder ai.IEmbedder
	chunker  *ai.Chunker
	now      func() time.Time
}

func NewIngestService(store repo.IndexStore, embedder ai.IEmbedder, chunker *ai.Chunker) *IngestService {
	return &IngestService{store: store, embedder: embedder, chunker: chunker, now: time.Now}
}

// Ingest stores the pruned form and one vector per chunk of its projection
// in a single batch. Failures are reported in the result.
func (s *IngestService) Ingest(ctx context.Context, domain string, f *form.Map) IngestResult {
	objectID := newObjectID(s.now())
	logger := logutil.GetLogger(ctx).With(zap.String("object_id", objectID), zap.String("domain", domain))
	if err := s.ingest(ctx, objectID, domain, f); err != nil {
		logger.Error("ingest form failed", zap.Error(err))
		return IngestResult{
			ObjectID: objectID,
			Success:  false,
			Message:  fmt.Sprintf("%s %v", ingestFailureMessage, err),
		}
	}
	logger.Info("form ingested")
	return IngestResult{ObjectID: objectID, Success: true, Message: ingestSuccessMessage}
}

func (s *IngestService) ingest(ctx context.Context, objectID, domain string, f *form.Map) error {
	if domain == "" {
		return fmt.Errorf("domain is required: %w", appErr.ErrInvalid)
	}
	cleaned := form.Prune(f)
	if cleaned.Len() == 0 {
		return fmt.Errorf("form has no values: %w", appErr.ErrInvalid)
	}
	chunks := s.chunker.Chunk(ctx, form.Project(cleaned))
	if len(chunks) == 0 {
		return fmt.Errorf("form has no descriptive text: %w", appErr.ErrInvalid)
	}
	embeddings := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Text, ai.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w: %w", chunk.Position, appErr.ErrEmbeddingFailure, err)
		}
		if len(vec) == 0 {
			return fmt.Errorf("embed chunk %d returned no vector: %w", chunk.Position, appErr.ErrEmbeddingFailure)
		}
		embeddings = append(embeddings, vec)
	}

	batch := repo.NewBatch()
	for _, vec := range embeddings {
		batch.PutVector(model.VectorEntry{
			ID:        newID(),
			ObjectID:  objectID,
			Domain:    domain,
			Embedding: vec,
		})
	}
	batch.PutRecord(model.RawRecord{
		ID:       newID(),
		ObjectID: objectID,
		Domain:   domain,
		Form:     cleaned,
	})
	if err := s.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("commit batch: %w: %w", appErr.ErrPersistenceFailure, err)
	}
	logutil.GetLogger(ctx).Debug("ingest batch committed",
		zap.String("object_id", objectID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}
