package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/formpilot/internal/repo"
)

type DeleteValueResult struct {
	Value   string `json:"value"`
	Success bool   `json:"success"`
	Vectors int    `json:"vectors"`
	Records int    `json:"records"`
	Message string `json:"message,omitempty"`
}

// DeleteResult.Success is true only when every value was deleted.
type DeleteResult struct {
	Success bool                `json:"success"`
	Results []DeleteValueResult `json:"results"`
}

type DeleteService struct {
	store       repo.IndexStore
	concurrency int
}

func NewDeleteService(store repo.IndexStore, concurrency int) *DeleteService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &DeleteService{store: store, concurrency: concurrency}
}

// Delete removes, per value, every vector and raw entry whose property
// equals the value, one atomic batch per value. Batches run concurrently and
// are all awaited.
func (s *DeleteService) Delete(ctx context.Context, property string, values []string) DeleteResult {
	logger := logutil.GetLogger(ctx).With(zap.String("property", property))
	if property == "" {
		return DeleteResult{Success: false, Results: []DeleteValueResult{{Message: "property is required"}}}
	}
	results := make([]DeleteValueResult, len(values))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, value := range values {
		g.Go(func() error {
			results[i] = s.deleteValue(ctx, property, value)
			return nil
		})
	}
	_ = g.Wait()

	success := true
	for _, r := range results {
		if !r.Success {
			success = false
			logger.Warn("delete value failed", zap.String("value", r.Value), zap.String("message", r.Message))
		}
	}
	logger.Info("delete finished", zap.Int("values", len(values)), zap.Bool("success", success))
	return DeleteResult{Success: success, Results: results}
}

func (s *DeleteService) deleteValue(ctx context.Context, property, value string) DeleteValueResult {
	res := DeleteValueResult{Value: value}
	vectorIDs, err := s.store.FindVectorIDs(ctx, property, value)
	if err != nil {
		res.Message = fmt.Sprintf("find vector entries: %v", err)
		return res
	}
	recordIDs, err := s.store.FindRecordIDs(ctx, property, value)
	if err != nil {
		res.Message = fmt.Sprintf("find raw entries: %v", err)
		return res
	}
	batch := repo.NewBatch()
	for _, id := range vectorIDs {
		batch.DeleteVector(id)
	}
	for _, id := range recordIDs {
		batch.DeleteRecord(id)
	}
	if err := s.store.Commit(ctx, batch); err != nil {
		res.Message = fmt.Sprintf("commit delete batch: %v", err)
		return res
	}
	res.Success = true
	res.Vectors = len(vectorIDs)
	res.Records = len(recordIDs)
	return res
}
