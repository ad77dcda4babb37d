package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/filestore"
	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/repo"
)

// ExportService writes the stored forms of a domain as seed compatible JSONL.
type ExportService struct {
	store repo.IndexStore
	files filestore.Store
}

func NewExportService(store repo.IndexStore, files filestore.Store) *ExportService {
	return &ExportService{store: store, files: files}
}

func (s *ExportService) Export(ctx context.Context, domain string, w io.Writer) (int, error) {
	records, err := s.store.ListRecordsByDomain(ctx, domain)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}
	for _, rec := range records {
		encoded, err := form.Encode(rec.Form)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", rec.ObjectID, err)
		}
		var line bytes.Buffer
		line.WriteString(`{"domain":`)
		if err := writeJSONString(&line, rec.Domain); err != nil {
			return 0, err
		}
		line.WriteString(`,"form":`)
		line.Write(encoded)
		line.WriteString("}\n")
		if _, err := w.Write(line.Bytes()); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

func (s *ExportService) ExportToStore(ctx context.Context, domain, key string) (int, error) {
	if s.files == nil {
		return 0, fmt.Errorf("file store not configured")
	}
	var buf bytes.Buffer
	n, err := s.Export(ctx, domain, &buf)
	if err != nil {
		return 0, err
	}
	if err := s.files.Save(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return 0, fmt.Errorf("save export %s: %w", key, err)
	}
	logutil.GetLogger(ctx).Info("forms exported",
		zap.String("domain", domain),
		zap.String("key", key),
		zap.Int("forms", n),
	)
	return n, nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoded, err := form.String(s).MarshalJSON()
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}
