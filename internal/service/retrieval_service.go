package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
	"github.com/xxxsen/formpilot/internal/repo"
)

type RetrievalOptions struct {
	Limit          int
	Weights        RankWeights
	FetchBatchSize int
	// PreserveFetchOrder keeps each batch in store order instead of
	// restoring the ranked order across batches.
	PreserveFetchOrder bool
}

type RetrievalService struct {
	index repo.VectorIndex
	store repo.IndexStore
	opts  RetrievalOptions
}

func NewRetrievalService(index repo.VectorIndex, store repo.IndexStore, opts RetrievalOptions) *RetrievalService {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Weights == (RankWeights{}) {
		opts.Weights = DefaultRankWeights()
	}
	if opts.FetchBatchSize <= 0 || opts.FetchBatchSize > repo.MaxInSetSize {
		opts.FetchBatchSize = repo.MaxInSetSize
	}
	return &RetrievalService{index: index, store: store, opts: opts}
}

// Rank returns the candidates for current, best first.
func (s *RetrievalService) Rank(ctx context.Context, current model.FormInput) ([]model.RankedCandidate, error) {
	query := form.Project(form.Prune(current.Form))
	if query == "" {
		return nil, nil
	}
	hits, err := s.index.Query(ctx, query, repo.Filter{Domain: current.Domain}, s.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", wrapQueryErr(err))
	}
	return RankHits(hits, s.opts.Weights), nil
}

// Retrieve returns the stored forms most similar to current. Query and
// fetch errors are returned to the caller.
func (s *RetrievalService) Retrieve(ctx context.Context, current model.FormInput) ([]model.FormInput, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("domain", current.Domain))
	ranked, err := s.Rank(ctx, current)
	if err != nil {
		return nil, err
	}
	rankedIDs := make([]string, 0, len(ranked))
	position := make(map[string]int, len(ranked))
	for i, c := range ranked {
		rankedIDs = append(rankedIDs, c.ObjectID)
		position[c.ObjectID] = i
	}

	var records []model.RawRecord
	for _, batch := range partition(rankedIDs, s.opts.FetchBatchSize) {
		recs, err := s.store.ListRecordsIn(ctx, repo.FieldObjectID, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch records: %w", wrapQueryErr(err))
		}
		records = append(records, recs...)
	}
	if !s.opts.PreserveFetchOrder {
		sort.SliceStable(records, func(i, j int) bool {
			return position[records[i].ObjectID] < position[records[j].ObjectID]
		})
	}

	out := make([]model.FormInput, 0, len(records))
	for _, rec := range records {
		out = append(out, model.FormInput{Domain: rec.Domain, Form: rec.Form})
	}
	logger.Info("forms retrieved", zap.Int("candidates", len(ranked)), zap.Int("forms", len(out)))
	return out, nil
}

func wrapQueryErr(err error) error {
	if appErr.IsQueryFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %w", appErr.ErrQueryFailure, err)
}
