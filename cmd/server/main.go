package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ganot/worklog/internal/archive"
	"github.com/ganot/worklog/internal/config"
	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/ganot/worklog/internal/mcptool"
	"github.com/ganot/worklog/internal/query"
	"github.com/ganot/worklog/internal/scheduler"
	"github.com/ganot/worklog/internal/sqlite"
	"github.com/ganot/worklog/internal/timesheet"
	"github.com/ganot/worklog/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Server.Mode == "stdio" {
		logWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	logRepo := sqlite.NewTaskLogRepository(db)
	taskRepo := sqlite.NewTaskRepository(db)
	catalogRepo := sqlite.NewCatalogRepository(db)

	model, embedder, err := buildLLM(cfg.LLM)
	if err != nil {
		logger.Warn("language model unavailable, query answers degrade to raw data", "error", err)
	}

	var store *archive.Store
	if embedder != nil {
		store, err = archive.NewStore(archive.Config{
			Path:       cfg.Archive.Path,
			Collection: cfg.Archive.Collection,
			Compress:   cfg.Archive.Compress,
		}, embeddingFunc(embedder), logger)
		if err != nil {
			logger.Error("failed to open archive store", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("archive store disabled without an embedder; stops will report archival failure")
	}

	var recorder worklog.TimeRecorder
	var syncer *timesheet.Syncer
	if cfg.Timesheet.URL != "" && cfg.Timesheet.GUID != "" {
		client, err := timesheet.NewClient(timesheet.Config{
			URL:  cfg.Timesheet.URL,
			GUID: cfg.Timesheet.GUID,
		}, logger)
		if err != nil {
			logger.Error("failed to create timesheet client", "error", err)
			os.Exit(1)
		}
		recorder = client
		syncer = timesheet.NewSyncer(client, catalogRepo, logger)
	} else {
		logger.Warn("timesheet integration disabled, time entries will not be recorded")
	}

	policy := worklog.DefaultReconcilePolicy()
	policy.FallbackSeconds = cfg.AutoStop.FallbackSeconds

	var archiver worklog.Archiver
	if store != nil {
		archiver = store
	}
	lifecycle := worklog.NewService(logRepo, taskRepo, archiver, recorder, policy, logger)

	var engine *query.Engine
	if store != nil {
		engine = query.NewEngine(
			query.NewRouter(),
			query.NewParser(model, logger),
			query.NewMetadataEngine(store, logger),
			store,
			model,
			nil,
			logger,
		)
	}

	autoStop := scheduler.NewAutoStop(lifecycle, cfg.AutoStop.Hour, cfg.AutoStop.Minute, logger)
	autoStop.Start()
	defer autoStop.Stop()

	if syncer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := syncer.SyncCatalog(ctx); err != nil {
				logger.Error("catalog sync failed", "error", err)
			}
		}()
	}

	if cfg.Server.Mode == "stdio" {
		runStdioMode(logger, lifecycle, engine)
	} else {
		runHTTPMode(logger, lifecycle, engine, cfg)
	}
}

func runStdioMode(logger *slog.Logger, lifecycle *worklog.Service, engine *query.Engine) {
	logger.Info("starting stdio transport")

	server := mcptool.NewServer(mcptool.Config{
		Lifecycle: lifecycle,
		Engine:    engine,
		Logger:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled.
	if err := mcptool.Run(ctx, server); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, lifecycle *worklog.Service, engine *query.Engine, cfg config.Config) {
	server, err := transport.NewServer(lifecycle, engine, transport.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, logger)
	if err != nil {
		logger.Error("failed to create http server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// buildLLM creates the chat model and embedder when an API key is configured.
func buildLLM(cfg config.LLMConfig) (llms.Model, embeddings.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("no API key configured")
	}

	chatOpts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	embedOpts := []openai.Option{
		openai.WithModel(cfg.EmbeddingModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		chatOpts = append(chatOpts, openai.WithBaseURL(cfg.BaseURL))
		embedOpts = append(embedOpts, openai.WithBaseURL(cfg.BaseURL))
	}

	chatLLM, err := openai.New(chatOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating chat client: %w", err)
	}
	embedLLM, err := openai.New(embedOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	return chatLLM, embedder, nil
}

// embeddingFunc adapts a langchaingo embedder to chromem's interface.
func embeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
