package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/middleware"
	"github.com/xxxsen/formpilot/internal/pkg/errcode"
	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
	"github.com/xxxsen/formpilot/internal/pkg/response"
)

const maxBodyBytes = 8 << 20

func getSubject(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextSubjectKey)
	subject, _ := value.(string)
	return subject
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("subject", getSubject(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, appErr.ErrInSetTooLarge):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
	case errors.Is(err, appErr.ErrEmbeddingFailure):
		response.Error(c, errcode.ErrEmbeddingFailed, "embedding failed")
	case errors.Is(err, appErr.ErrPersistenceFailure):
		response.Error(c, errcode.ErrPersistFailed, "persistence failed")
	case errors.Is(err, appErr.ErrQueryFailure):
		response.Error(c, errcode.ErrQueryFailed, "query failed")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

// bindJSON decodes the request body into dst. A body shaped like
// {"name":"codeblock","data":{"root":{...}}} is unwrapped to its root first.
func bindJSON(c *gin.Context, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	return json.Unmarshal(unwrapCodeblock(body), dst)
}

type codeblockEnvelope struct {
	Name string `json:"name"`
	Data *struct {
		Root json.RawMessage `json:"root"`
	} `json:"data"`
}

func unwrapCodeblock(body []byte) []byte {
	var env codeblockEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if env.Name != "codeblock" || env.Data == nil || len(env.Data.Root) == 0 || env.Data.Root[0] != '{' {
		return body
	}
	return env.Data.Root
}
