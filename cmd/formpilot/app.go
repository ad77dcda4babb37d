package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/ai"
	"github.com/xxxsen/formpilot/internal/config"
	"github.com/xxxsen/formpilot/internal/db"
	"github.com/xxxsen/formpilot/internal/embedcache"
	"github.com/xxxsen/formpilot/internal/filestore"
	"github.com/xxxsen/formpilot/internal/job"
	"github.com/xxxsen/formpilot/internal/repo"
	"github.com/xxxsen/formpilot/internal/schedule"
	"github.com/xxxsen/formpilot/internal/service"
)

type app struct {
	cfg       *config.Config
	db        *sql.DB
	store     repo.IndexStore
	cacheRepo *repo.EmbeddingCacheRepo
	files     filestore.Store
	manager   *ai.Manager

	ingest    *service.IngestService
	retrieval *service.RetrievalService
	deletes   *service.DeleteService
	suggest   *service.SuggestService
	pilot     *service.PilotService
	seed      *service.SeedService
	export    *service.ExportService
}

// loadConfig reads .env (when present) before the config file so that
// ${VAR} references can resolve from it.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded",
		zap.String("config", path),
		zap.String("store", cfg.Store.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)
	return cfg, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	switch cfg.Store.Type {
	case config.StoreTypeMemory:
		a.store = repo.NewMemoryStore()
	default:
		conn, err := openDB(cfg)
		if err != nil {
			return nil, err
		}
		a.db = conn
		a.store = repo.NewPostgresStore(conn)
		a.cacheRepo = repo.NewEmbeddingCacheRepo(conn)
	}

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}
	a.files = files

	generator, embedder, err := buildAI(cfg, a.cacheRepo)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.manager = ai.NewManager(generator, embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
	})

	chunker := ai.NewChunker(ai.ChunkOptions{
		MaxLength: cfg.Chunk.MaxLength,
		MinLength: cfg.Chunk.MinLength,
		Overlap:   cfg.Chunk.OverlapValue(),
	})
	a.ingest = service.NewIngestService(a.store, a.manager, chunker)
	a.retrieval = service.NewRetrievalService(
		repo.NewEmbeddingVectorIndex(a.manager, a.store),
		a.store,
		service.RetrievalOptions{
			Limit: cfg.Retrieval.Limit,
			Weights: service.RankWeights{
				ChunkMatch: cfg.Retrieval.ChunkMatchWeight,
				Timestamp:  cfg.Retrieval.TimestampWeight,
			},
			FetchBatchSize:     cfg.Retrieval.FetchBatchSize,
			PreserveFetchOrder: cfg.Retrieval.PreserveFetchOrder,
		},
	)
	a.deletes = service.NewDeleteService(a.store, cfg.Delete.Concurrency)
	a.suggest = service.NewSuggestService(a.retrieval, a.manager)
	a.pilot = service.NewPilotService(a.ingest, a.suggest)
	a.seed = service.NewSeedService(a.ingest, a.files)
	a.export = service.NewExportService(a.store, a.files)
	return a, nil
}

// buildAI assembles the generator and the cached embedder group. Either may
// be nil when no provider is configured.
func buildAI(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo) (ai.IGenerator, ai.IEmbedder, error) {
	var generator ai.IGenerator
	if cfg.AI.Provider != "" {
		provider, err := ai.NewGenerateProvider(cfg.AI.Provider, cfg.AI.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider: %w", err)
		}
		generator = ai.NewGenerator(provider, cfg.AI.GenerateModel)
	}

	entries := make([]ai.EmbedderEntry, 0, len(cfg.AI.Embed))
	for i, item := range cfg.AI.Embed {
		provider, err := ai.NewEmbedProvider(item.Provider, item.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai.embed[%d]: %w", i, err)
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     fmt.Sprintf("%s:%s", item.Provider, item.Model),
			Embedder: ai.NewEmbedder(provider, item.Model),
		})
	}
	embedder := ai.NewGroupEmbedder(entries)
	if embedder == nil {
		return generator, nil, nil
	}
	if cacheRepo != nil && cfg.EmbedCache.DBEnabled {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.EmbedCache.LRUSize, time.Duration(cfg.EmbedCache.LRUTTLSeconds)*time.Second)
	return generator, embedder, nil
}

// startScheduler registers the background jobs. It returns nil when there is
// nothing to schedule.
func (a *app) startScheduler(ctx context.Context) (schedule.Scheduler, error) {
	if a.cacheRepo == nil || !a.cfg.EmbedCache.DBEnabled {
		return nil, nil
	}
	s := schedule.NewCronScheduler()
	cleanup := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, a.cfg.EmbedCache.MaxAgeDays)
	if err := s.AddJob(cleanup, a.cfg.EmbedCache.CleanupCron); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", cleanup.Name(), err)
	}
	s.Start(ctx)
	return s, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
