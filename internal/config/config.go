package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"

	maxFetchBatchSize   = 10
	defaultChunkOverlap = 50
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	Store         StoreConfig      `json:"store"`
	AI            AIConfig         `json:"ai"`
	EmbedCache    EmbedCacheConfig `json:"embed_cache"`
	Chunk         ChunkConfig      `json:"chunk"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	Delete        DeleteConfig     `json:"delete"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Seed          SeedConfig       `json:"seed"`
	JWTSecret     string           `json:"jwt_secret"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	RateLimitMs   int              `json:"rate_limit_ms"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type StoreConfig struct {
	Type string `json:"type"`
}

type AIConfig struct {
	Provider      string        `json:"provider"`
	Data          interface{}   `json:"data"`
	GenerateModel string        `json:"generate_model"`
	Embed         []EmbedConfig `json:"embed"`
	Timeout       int           `json:"timeout"`
	MaxInputChars int           `json:"max_input_chars"`
}

// EmbedConfig is one entry of the embedder fallback group. Data falls back
// to ai.data when the entry uses the same provider.
type EmbedConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type EmbedCacheConfig struct {
	LRUSize       int    `json:"lru_size"`
	LRUTTLSeconds int    `json:"lru_ttl_seconds"`
	DBEnabled     bool   `json:"db_enabled"`
	MaxAgeDays    int    `json:"max_age_days"`
	CleanupCron   string `json:"cleanup_cron"`
}

// ChunkConfig.Overlap is a pointer so an explicit 0 disables overlap.
type ChunkConfig struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	Overlap   *int `json:"overlap"`
}

func (c ChunkConfig) OverlapValue() int {
	if c.Overlap == nil {
		return defaultChunkOverlap
	}
	return *c.Overlap
}

type RetrievalConfig struct {
	Limit              int     `json:"limit"`
	ChunkMatchWeight   float64 `json:"chunk_match_weight"`
	TimestampWeight    float64 `json:"timestamp_weight"`
	FetchBatchSize     int     `json:"fetch_batch_size"`
	PreserveFetchOrder bool    `json:"preserve_fetch_order"`
}

type DeleteConfig struct {
	Concurrency int `json:"concurrency"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type SeedConfig struct {
	Key string `json:"key"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a json or yaml (by extension) config file. ${VAR} references
// are replaced with the environment value before decoding.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	raw = expandEnv(raw)

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := decodeYAML(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// decodeYAML routes yaml through json so the json tags stay the only mapping.
func decodeYAML(raw []byte, cfg *Config) error {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func (c *Config) normalize() error {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}

	c.Store.Type = strings.ToLower(strings.TrimSpace(c.Store.Type))
	if c.Store.Type == "" {
		c.Store.Type = StoreTypePostgres
	}
	switch c.Store.Type {
	case StoreTypePostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres store")
		}
		if c.Database.DSN == "" && c.Database.Port == 0 {
			c.Database.Port = 5432
		}
	case StoreTypeMemory:
		c.EmbedCache.DBEnabled = false
	default:
		return fmt.Errorf("store.type must be postgres or memory")
	}

	if len(c.AI.Embed) == 0 && c.AI.Provider != "" {
		if strings.EqualFold(c.AI.Provider, "openrouter") {
			return fmt.Errorf("ai.embed is required for provider openrouter")
		}
		c.AI.Embed = []EmbedConfig{{Provider: c.AI.Provider}}
	}
	for i := range c.AI.Embed {
		item := &c.AI.Embed[i]
		if item.Provider == "" {
			return fmt.Errorf("ai.embed[%d].provider is required", i)
		}
		if item.Data == nil && strings.EqualFold(item.Provider, c.AI.Provider) {
			item.Data = c.AI.Data
		}
		if item.Model == "" {
			item.Model = defaultEmbedModel(item.Provider)
		}
	}
	if c.AI.GenerateModel == "" {
		c.AI.GenerateModel = defaultGenerateModel(c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 60
	}
	if c.AI.MaxInputChars <= 0 {
		c.AI.MaxInputChars = 100000
	}

	if c.EmbedCache.LRUSize <= 0 {
		c.EmbedCache.LRUSize = 1024
	}
	if c.EmbedCache.LRUTTLSeconds <= 0 {
		c.EmbedCache.LRUTTLSeconds = 3600
	}
	if c.EmbedCache.MaxAgeDays <= 0 {
		c.EmbedCache.MaxAgeDays = 30
	}
	if c.EmbedCache.CleanupCron == "" {
		c.EmbedCache.CleanupCron = "0 3 * * *"
	}

	if c.Chunk.MaxLength <= 0 {
		c.Chunk.MaxLength = 768
	}
	if overlap := c.Chunk.OverlapValue(); overlap < 0 || overlap >= c.Chunk.MaxLength {
		return fmt.Errorf("chunk.overlap must be in [0, chunk.max_length)")
	}
	if c.Chunk.MinLength < 0 || c.Chunk.MinLength > c.Chunk.MaxLength {
		return fmt.Errorf("chunk.min_length must be in [0, chunk.max_length]")
	}

	if c.Retrieval.Limit <= 0 {
		c.Retrieval.Limit = 10
	}
	if c.Retrieval.ChunkMatchWeight == 0 {
		c.Retrieval.ChunkMatchWeight = 1
	}
	if c.Retrieval.TimestampWeight == 0 {
		c.Retrieval.TimestampWeight = 0.5
	}
	if c.Retrieval.FetchBatchSize <= 0 {
		c.Retrieval.FetchBatchSize = maxFetchBatchSize
	}
	if c.Retrieval.FetchBatchSize > maxFetchBatchSize {
		return fmt.Errorf("retrieval.fetch_batch_size must not exceed %d", maxFetchBatchSize)
	}

	if c.Delete.Concurrency <= 0 {
		c.Delete.Concurrency = 4
	}

	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	if c.FileStore.Data == nil && c.FileStore.Type == "local" {
		c.FileStore.Data = map[string]interface{}{"dir": "./data"}
	}
	return nil
}

func defaultEmbedModel(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return "text-embedding-004"
	case "openai":
		return "text-embedding-3-small"
	}
	return ""
}

func defaultGenerateModel(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return "gemini-2.0-flash"
	case "openai":
		return "gpt-4o-mini"
	case "openrouter":
		return "openai/gpt-4o-mini"
	}
	return ""
}
