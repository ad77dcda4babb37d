package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
)

type ManagerConfig struct {
	Timeout       int
	MaxInputChars int
}

// Manager applies timeouts and input limits around the configured generator
// and embedder. It satisfies both IGenerator and IEmbedder.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
	}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) ModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", ErrUnavailable
	}
	if limit := m.cfg.MaxInputChars; limit > 0 && len(prompt) > limit {
		return "", fmt.Errorf("prompt exceeds %d chars: %w", limit, appErr.ErrInvalid)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

// ExtractJSONObject pulls the first JSON object out of a model answer that
// may be wrapped in a markdown fence or surrounded by prose.
func ExtractJSONObject(output string) (json.RawMessage, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object in ai response")
	}
	clean = clean[start : end+1]
	if !json.Valid([]byte(clean)) {
		return nil, fmt.Errorf("invalid json object in ai response")
	}
	return json.RawMessage(clean), nil
}
