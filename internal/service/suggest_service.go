package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/ai"
	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
)

const missingSchemaMessage = "Requires missing `JSON Schema`"

type formRetriever interface {
	Retrieve(ctx context.Context, current model.FormInput) ([]model.FormInput, error)
}

type SuggestResult struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Suggestion *form.Map `json:"suggestion,omitempty"`
}

// SuggestService completes a partial form from similar stored forms and a
// JSON schema describing the target shape.
type SuggestService struct {
	retriever formRetriever
	generator ai.IGenerator
}

func NewSuggestService(retriever formRetriever, generator ai.IGenerator) *SuggestService {
	return &SuggestService{retriever: retriever, generator: generator}
}

// Suggest returns an error only when retrieval fails. A missing schema or a
// failed generation is reported in the result.
func (s *SuggestService) Suggest(ctx context.Context, current model.FormInput, schema *form.Map) (SuggestResult, error) {
	if schema == nil || schema.Len() == 0 {
		return SuggestResult{Success: false, Message: missingSchemaMessage}, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("domain", current.Domain))
	relevant, err := s.retriever.Retrieve(ctx, current)
	if err != nil {
		return SuggestResult{}, err
	}
	prompt, err := buildSuggestPrompt(current, relevant, schema)
	if err != nil {
		return SuggestResult{}, err
	}
	suggestion, err := s.generate(ctx, prompt)
	if err != nil {
		logger.Error("generate suggestion failed", zap.Error(err))
		return SuggestResult{Success: false, Message: err.Error()}, nil
	}
	suggestion = restrictToSchema(suggestion, schema)
	logger.Info("suggestion generated", zap.Int("relevant_forms", len(relevant)), zap.Int("fields", suggestion.Len()))
	return SuggestResult{Success: true, Suggestion: suggestion}, nil
}

func (s *SuggestService) generate(ctx context.Context, prompt string) (*form.Map, error) {
	if s.generator == nil {
		return nil, ai.ErrUnavailable
	}
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	raw, err := ai.ExtractJSONObject(answer)
	if err != nil {
		return nil, err
	}
	return form.Parse(raw)
}

func buildSuggestPrompt(current model.FormInput, relevant []model.FormInput, schema *form.Map) (string, error) {
	currentJSON, err := encodeJSON(current)
	if err != nil {
		return "", err
	}
	if relevant == nil {
		relevant = []model.FormInput{}
	}
	relevantJSON, err := encodeJSON(relevant)
	if err != nil {
		return "", err
	}
	schemaJSON, err := form.Encode(schema)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("You complete partially filled forms.\n")
	sb.WriteString("Fill in the form in currentForm using values and patterns from the similar past submissions in relevantForms. ")
	sb.WriteString("The result must follow the JSON Schema in schema.\n\n")
	fmt.Fprintf(&sb, "currentForm:\n```json\n%s\n```\n\n", currentJSON)
	fmt.Fprintf(&sb, "relevantForms:\n```json\n%s\n```\n\n", relevantJSON)
	fmt.Fprintf(&sb, "schema:\n```json\n%s\n```\n\n", schemaJSON)
	sb.WriteString("Rules:\n")
	sb.WriteString("1. Keep every value already present in currentForm.form.\n")
	sb.WriteString("2. Fill missing fields with values consistent with relevantForms[*].form.\n")
	sb.WriteString("3. Values that contain HTML (for example <p>, <strong>, <em>) must be kept as HTML strings with all tags. Do not strip or flatten them.\n")
	sb.WriteString("4. Output only the fields defined by the schema properties.\n")
	sb.WriteString("5. Answer with a single JSON object holding the completed form and nothing else.\n")
	return sb.String(), nil
}

// encodeJSON marshals v without escaping HTML characters.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// restrictToSchema drops top level fields that schema.properties does not
// declare. Schemas without properties leave the suggestion untouched.
func restrictToSchema(suggestion *form.Map, schema *form.Map) *form.Map {
	props, ok := schema.Get("properties")
	if !ok || props.Kind() != form.KindMap || props.Map().Len() == 0 {
		return suggestion
	}
	out := form.NewMap()
	for _, key := range suggestion.Keys() {
		if _, declared := props.Map().Get(key); !declared {
			continue
		}
		v, _ := suggestion.Get(key)
		out.Set(key, v)
	}
	return out
}
