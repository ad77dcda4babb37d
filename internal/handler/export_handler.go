package handler

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/formpilot/internal/pkg/errcode"
	"github.com/xxxsen/formpilot/internal/pkg/response"
	"github.com/xxxsen/formpilot/internal/service"
)

type ExportHandler struct {
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// Export streams the forms of a domain as a JSONL attachment.
func (h *ExportHandler) Export(c *gin.Context) {
	domain := strings.TrimSpace(c.Query("domain"))
	if domain == "" {
		response.Error(c, errcode.ErrInvalid, "domain is required")
		return
	}
	var buf bytes.Buffer
	if _, err := h.export.Export(c.Request.Context(), domain, &buf); err != nil {
		handleError(c, err)
		return
	}
	fileName := fmt.Sprintf("formpilot-%s-%s.jsonl", domain, time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(200, "application/x-ndjson", buf.Bytes())
}
