package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/formpilot/internal/config"
	"github.com/xxxsen/formpilot/internal/handler"
	"github.com/xxxsen/formpilot/internal/middleware"
	"github.com/xxxsen/formpilot/internal/pkg/jwt"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "formpilot",
		Short: "formpilot form indexing and suggestion server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run formpilot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(a)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Store.Type != config.StoreTypePostgres {
				return fmt.Errorf("migrate requires store.type %s", config.StoreTypePostgres)
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(cmd.Context()).Info("migrations applied", zap.String("dsn", redactDSN(cfg)))
			return nil
		},
	}

	var seedKey string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "ingest a JSONL dataset, the built-in demo set by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			key := seedKey
			if key == "" {
				key = cfg.Seed.Key
			}
			ctx := cmd.Context()
			if key == "" {
				_, err = a.seed.SeedDemo(ctx)
			} else {
				_, err = a.seed.SeedFromStore(ctx, key)
			}
			return err
		},
	}
	seedCmd.Flags().StringVar(&seedKey, "key", "", "file store key of the dataset")

	var exportDomain, exportKey string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "export the forms of a domain as JSONL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportDomain == "" {
				return fmt.Errorf("--domain is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if exportKey == "" {
				_, err = a.export.Export(cmd.Context(), exportDomain, cmd.OutOrStdout())
				return err
			}
			_, err = a.export.ExportToStore(cmd.Context(), exportDomain, exportKey)
			return err
		},
	}
	exportCmd.Flags().StringVar(&exportDomain, "domain", "", "domain to export")
	exportCmd.Flags().StringVar(&exportKey, "key", "", "file store key to write, stdout when empty")

	var tokenSubject string
	var tokenTTL time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue an API token signed with jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenSubject == "" {
				return fmt.Errorf("--subject is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("jwt_secret is not configured")
			}
			token, err := jwt.GenerateToken(tokenSubject, []byte(cfg.JWTSecret), tokenTTL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "client identifier stored in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")

	rootCmd.AddCommand(runCmd, migrateCmd, seedCmd, exportCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(a *app) error {
	cfg := a.cfg
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("embed_model", a.manager.ModelName()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := a.startScheduler(ctx)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	deps := handler.RouterDeps{
		Forms:  handler.NewFormHandler(a.ingest, a.retrieval, a.deletes, a.suggest, a.pilot),
		Export: handler.NewExportHandler(a.export),
		Properties: handler.NewPropertiesHandler(handler.Properties{
			StoreType:      cfg.Store.Type,
			AIProvider:     cfg.AI.Provider,
			EmbedModel:     a.manager.ModelName(),
			RetrievalLimit: cfg.Retrieval.Limit,
			AuthRequired:   cfg.JWTSecret != "",
		}),
		JWTSecret: []byte(cfg.JWTSecret),
		RateLimit: time.Duration(cfg.RateLimitMs) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func redactDSN(cfg *config.Config) string {
	if cfg.Database.DSN != "" {
		return "<dsn>"
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
}
