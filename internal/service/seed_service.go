package service

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/filestore"
	"github.com/xxxsen/formpilot/internal/form"
)

//go:embed dataset/forms.jsonl
var demoDataset []byte

const maxSeedLineBytes = 4 << 20

type formIngester interface {
	Ingest(ctx context.Context, domain string, f *form.Map) IngestResult
}

type SeedReport struct {
	Total    int            `json:"total"`
	Ingested int            `json:"ingested"`
	Failed   int            `json:"failed"`
	Results  []IngestResult `json:"results"`
}

type seedLine struct {
	Domain string    `json:"domain"`
	Form   *form.Map `json:"form"`
}

type SeedService struct {
	ingester formIngester
	files    filestore.Store
}

// NewSeedService accepts a nil files store; SeedFromStore is then unavailable.
func NewSeedService(ingester formIngester, files filestore.Store) *SeedService {
	return &SeedService{ingester: ingester, files: files}
}

func (s *SeedService) SeedDemo(ctx context.Context) (SeedReport, error) {
	return s.Seed(ctx, bytes.NewReader(demoDataset))
}

func (s *SeedService) SeedFromStore(ctx context.Context, key string) (SeedReport, error) {
	if s.files == nil {
		return SeedReport{}, fmt.Errorf("file store not configured")
	}
	rc, err := s.files.Open(ctx, key)
	if err != nil {
		return SeedReport{}, fmt.Errorf("open seed dataset %s: %w", key, err)
	}
	defer rc.Close()
	return s.Seed(ctx, rc)
}

// Seed ingests one {"domain","form"} object per line, in order. Lines that
// fail to decode or ingest are counted as failures.
func (s *SeedService) Seed(ctx context.Context, r io.Reader) (SeedReport, error) {
	logger := logutil.GetLogger(ctx)
	var report SeedReport
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxSeedLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		report.Total++
		var item seedLine
		if err := json.Unmarshal([]byte(line), &item); err != nil || item.Form == nil {
			report.Failed++
			report.Results = append(report.Results, IngestResult{Message: fmt.Sprintf("line %d: invalid entry", lineNo)})
			logger.Warn("skip invalid seed line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		res := s.ingester.Ingest(ctx, item.Domain, item.Form)
		report.Results = append(report.Results, res)
		if res.Success {
			report.Ingested++
		} else {
			report.Failed++
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("read seed dataset: %w", err)
	}
	logger.Info("seed finished",
		zap.Int("total", report.Total),
		zap.Int("ingested", report.Ingested),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
