package repo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/ai"
	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
)

type embeddingVectorIndex struct {
	embedder ai.IEmbedder
	store    IndexStore
}

// NewEmbeddingVectorIndex answers queries by embedding the query text and
// running a cosine nearest neighbour search on the store.
func NewEmbeddingVectorIndex(embedder ai.IEmbedder, store IndexStore) VectorIndex {
	return &embeddingVectorIndex{embedder: embedder, store: store}
}

func (v *embeddingVectorIndex) Query(ctx context.Context, queryText string, filter Filter, limit int) ([]Hit, error) {
	vec, err := v.embedder.Embed(ctx, queryText, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", appErr.ErrQueryFailure, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed query returned no vector: %w", appErr.ErrQueryFailure)
	}
	matches, err := v.store.SearchVectors(ctx, vec, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w: %w", appErr.ErrQueryFailure, err)
	}
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, Hit{Content: []Part{
			{Text: m.ObjectID},
			{Text: strconv.FormatInt(m.TimestampMs, 10)},
		}})
	}
	logutil.GetLogger(ctx).Debug("vector query finished",
		zap.String("domain", filter.Domain),
		zap.Int("limit", limit),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}
