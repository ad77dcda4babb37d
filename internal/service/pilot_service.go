package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
)

const (
	PilotActionStore   = "store"
	PilotActionSuggest = "suggest"
)

type PilotResult struct {
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	ObjectID   string    `json:"objectId,omitempty"`
	Suggestion *form.Map `json:"suggestion,omitempty"`
}

// PilotService routes a submitted form: complete forms without a schema are
// stored, anything else gets a suggestion.
type PilotService struct {
	ingester  formIngester
	suggester *SuggestService
}

func NewPilotService(ingester formIngester, suggester *SuggestService) *PilotService {
	return &PilotService{ingester: ingester, suggester: suggester}
}

func (s *PilotService) Handle(ctx context.Context, in model.FormInput, schema *form.Map) (PilotResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("domain", in.Domain))
	if schema == nil && IsComplete(in.Form) {
		logger.Debug("pilot routes complete form to store")
		res := s.ingester.Ingest(ctx, in.Domain, in.Form)
		return PilotResult{Action: PilotActionStore, Success: res.Success, Message: res.Message, ObjectID: res.ObjectID}, nil
	}
	if schema == nil {
		schema = InferSchema(in.Form)
	}
	logger.Debug("pilot routes form to suggestion")
	res, err := s.suggester.Suggest(ctx, in, schema)
	if err != nil {
		return PilotResult{}, err
	}
	return PilotResult{Action: PilotActionSuggest, Success: res.Success, Message: res.Message, Suggestion: res.Suggestion}, nil
}

// IsComplete reports whether every field carries a value. Unlike pruning,
// 0 and false count as values here.
func IsComplete(m *form.Map) bool {
	if m.Len() == 0 {
		return false
	}
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		if !valuePresent(v) {
			return false
		}
	}
	return true
}

func valuePresent(v form.Value) bool {
	switch v.Kind() {
	case form.KindNull:
		return false
	case form.KindString:
		return v.Str() != ""
	case form.KindList:
		return len(v.List()) > 0
	case form.KindMap:
		return IsComplete(v.Map())
	}
	return true
}

// InferSchema builds a minimal draft-07 object schema from the shape of m,
// with every field required.
func InferSchema(m *form.Map) *form.Map {
	props := form.NewMap()
	required := make([]form.Value, 0, m.Len())
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		props.Set(key, form.Object(typeSchema(v)))
		required = append(required, form.String(key))
	}
	schema := form.NewMap()
	schema.Set("type", form.String("object"))
	schema.Set("properties", form.Object(props))
	schema.Set("required", form.List(required...))
	return schema
}

func typeSchema(v form.Value) *form.Map {
	switch v.Kind() {
	case form.KindMap:
		return InferSchema(v.Map())
	case form.KindList:
		out := form.NewMap()
		out.Set("type", form.String("array"))
		return out
	}
	out := form.NewMap()
	out.Set("type", form.String(schemaType(v.Kind())))
	return out
}

func schemaType(k form.Kind) string {
	switch k {
	case form.KindNumber:
		return "number"
	case form.KindBool:
		return "boolean"
	}
	return "string"
}
