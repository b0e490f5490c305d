package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/config"
	"github.com/cmejo/AI-Scholar-sub014/internal/db"
	"github.com/cmejo/AI-Scholar-sub014/internal/filestore"
	"github.com/cmejo/AI-Scholar-sub014/internal/handler"
	"github.com/cmejo/AI-Scholar-sub014/internal/job"
	"github.com/cmejo/AI-Scholar-sub014/internal/middleware"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/apikey"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/token"
	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
	"github.com/cmejo/AI-Scholar-sub014/internal/schedule"
	"github.com/cmejo/AI-Scholar-sub014/internal/service"
	"github.com/cmejo/AI-Scholar-sub014/internal/splitcache"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scholar",
		Short: "hierarchical document chunking service",
	}
	rootCmd.AddCommand(newRunCmd(), newChunkCmd(), newTokenCmd(), newKeyhashCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the chunking server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			dbc, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(dbc); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, dbc)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return cmd
}

func buildSplitter(cfg config.ChunkingConfig, cacheRepo *repo.SentenceCacheRepo) chunking.SentenceSplitter {
	var splitter chunking.SentenceSplitter = chunking.NewHeuristicSplitter()
	if cfg.EnableDBSplitCache && cacheRepo != nil {
		splitter = splitcache.WrapDBCacheToSplitter(splitter, "heuristic", cacheRepo)
	}
	return splitcache.WrapLruCacheToSplitter(splitter, cfg.SplitCacheSize, time.Duration(cfg.SplitCacheTTLMin)*time.Minute)
}

func runServer(cfg *config.Config, dbc *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.String("bind", cfg.Bind),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Int("base_chunk_size", cfg.Chunking.BaseChunkSize),
		zap.Int("max_levels", cfg.Chunking.MaxLevels),
	)

	docRepo := repo.NewDocumentRepo(dbc)
	chunkRepo := repo.NewChunkRepo(dbc)
	runRepo := repo.NewIngestRunRepo(dbc)
	cacheRepo := repo.NewSentenceCacheRepo(dbc)

	splitter := buildSplitter(cfg.Chunking, cacheRepo)
	chunkingService := service.NewChunkingService(cfg.Chunking, splitter)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	ingestService := service.NewIngestService(docRepo, chunkRepo, runRepo, chunkingService, store)
	authService := service.NewAuthService(
		cfg.Auth.APIKeyHash,
		[]byte(cfg.Auth.TokenSecret),
		time.Hour*time.Duration(cfg.Auth.TokenTTLHours),
	)

	deps := handler.RouterDeps{
		Auth:           handler.NewAuthHandler(authService),
		Documents:      handler.NewDocumentHandler(ingestService),
		Chunking:       handler.NewChunkingHandler(chunkingService),
		TokenSecret:    []byte(cfg.Auth.TokenSecret),
		AuthRateWindow: time.Duration(cfg.Auth.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		cfg.Bind,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", cfg.Bind))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewRunRetentionJob(runRepo, cfg.Jobs.RunRetentionDays), cfg.Jobs.RunRetentionCron); err != nil {
		return fmt.Errorf("schedule run retention: %w", err)
	}
	if err := scheduler.AddJob(job.NewSentenceCacheCleanupJob(cacheRepo, cfg.Jobs.SentenceCacheMaxAgeDays), cfg.Jobs.SentenceCacheCron); err != nil {
		return fmt.Errorf("schedule sentence cache cleanup: %w", err)
	}
	scheduler.Start(ctx)

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	return nil
}

func newChunkCmd() *cobra.Command {
	var (
		filePath   string
		strategy   string
		chunkSize  int
		overlapPct float64
		maxLevels  int
		withStats  bool
	)

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "chunk a text file and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if filePath == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			cfg := config.ChunkingConfig{
				BaseChunkSize:     chunkSize,
				MaxLevels:         maxLevels,
				OverlapPercentage: overlapPct,
			}
			svc := service.NewChunkingService(cfg, chunking.NewHeuristicSplitter())
			chunks, err := svc.ChunkDocument(cmd.Context(), string(data), strategy)
			if err != nil {
				return err
			}
			result := map[string]interface{}{
				"chunks":       chunks,
				"total_chunks": len(chunks),
			}
			if withStats {
				result["hierarchy_statistics"] = svc.HierarchyStatistics(cmd.Context())
				result["overlap_statistics"] = svc.OverlapStatistics(cmd.Context())
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to the text file to chunk")
	cmd.Flags().StringVar(&strategy, "strategy", "", "chunking strategy (fixed_size, sentence_aware, hierarchical, adaptive)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "base chunk size in chars (0 = default)")
	cmd.Flags().Float64Var(&overlapPct, "overlap", 0, "overlap percentage (0 = default)")
	cmd.Flags().IntVar(&maxLevels, "max-levels", 0, "hierarchy depth (0 = default)")
	cmd.Flags().BoolVar(&withStats, "stats", false, "include hierarchy and overlap statistics")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		subject    string
		ttlHours   int
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "mint a service token with the configured signing secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ttl := time.Duration(ttlHours) * time.Hour
			if ttlHours <= 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
			}
			tok, err := token.Generate(subject, []byte(cfg.Auth.TokenSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&subject, "subject", "service", "token subject")
	cmd.Flags().IntVar(&ttlHours, "ttl-hours", 0, "token lifetime in hours (0 = config value)")
	return cmd
}

func newKeyhashCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "keyhash",
		Short: "print the bcrypt hash of an api key for the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return fmt.Errorf("--key is required")
			}
			hash, err := apikey.Hash(key)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "api key to hash")
	return cmd
}
