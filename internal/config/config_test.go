package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"store": {"type": "memory"},
		"ai": {"provider": "gemini", "data": {"api_key": "k"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, StoreTypeMemory, cfg.Store.Type)
	require.Equal(t, 768, cfg.Chunk.MaxLength)
	require.Equal(t, 50, cfg.Chunk.OverlapValue())
	require.Equal(t, 10, cfg.Retrieval.Limit)
	require.Equal(t, 1.0, cfg.Retrieval.ChunkMatchWeight)
	require.Equal(t, 0.5, cfg.Retrieval.TimestampWeight)
	require.Equal(t, 10, cfg.Retrieval.FetchBatchSize)
	require.Equal(t, 4, cfg.Delete.Concurrency)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Len(t, cfg.AI.Embed, 1)
	require.Equal(t, "gemini", cfg.AI.Embed[0].Provider)
	require.Equal(t, "text-embedding-004", cfg.AI.Embed[0].Model)
	require.Equal(t, map[string]interface{}{"api_key": "k"}, cfg.AI.Embed[0].Data)
	require.Equal(t, "gemini-2.0-flash", cfg.AI.GenerateModel)
}

func TestLoadYAMLWithEnv(t *testing.T) {
	t.Setenv("FORMPILOT_TEST_DSN", "postgres://u:p@localhost/forms?sslmode=disable")
	t.Setenv("FORMPILOT_TEST_KEY", "sk-123")
	path := writeConfig(t, "config.yaml", `
port: 9000
database:
  dsn: ${FORMPILOT_TEST_DSN}
ai:
  provider: openai
  data:
    api_key: ${FORMPILOT_TEST_KEY}
    base_url: https://openrouter.ai/api/v1
  embed:
    - provider: openai
      model: text-embedding-3-large
chunk:
  max_length: 200
  overlap: 20
retrieval:
  preserve_fetch_order: true
cors_allowlist:
  - http://localhost:3000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, StoreTypePostgres, cfg.Store.Type)
	require.Equal(t, "postgres://u:p@localhost/forms?sslmode=disable", cfg.Database.DSN)
	require.Equal(t, "text-embedding-3-large", cfg.AI.Embed[0].Model)
	data, ok := cfg.AI.Embed[0].Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "sk-123", data["api_key"])
	require.Equal(t, 200, cfg.Chunk.MaxLength)
	require.Equal(t, 20, cfg.Chunk.OverlapValue())
	require.True(t, cfg.Retrieval.PreserveFetchOrder)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowlist)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "postgres without database", content: `{}`},
		{name: "unknown store", content: `{"store":{"type":"redis"}}`},
		{name: "overlap too large", content: `{"store":{"type":"memory"},"chunk":{"max_length":10,"overlap":10}}`},
		{name: "default overlap exceeds max", content: `{"store":{"type":"memory"},"chunk":{"max_length":40}}`},
		{name: "fetch batch too large", content: `{"store":{"type":"memory"},"retrieval":{"fetch_batch_size":11}}`},
		{name: "embed without provider", content: `{"store":{"type":"memory"},"ai":{"embed":[{"model":"m"}]}}`},
		{name: "openrouter without embed", content: `{"store":{"type":"memory"},"ai":{"provider":"openrouter"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.json", tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
