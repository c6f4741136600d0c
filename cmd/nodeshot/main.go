package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/donpacheco/nodeshot/internal/actors"
	"github.com/donpacheco/nodeshot/internal/app"
	"github.com/donpacheco/nodeshot/internal/directory"
	"github.com/donpacheco/nodeshot/internal/layers"
	"github.com/donpacheco/nodeshot/internal/nodes"
	"github.com/donpacheco/nodeshot/internal/observability"
	"github.com/donpacheco/nodeshot/internal/platform/cache"
	"github.com/donpacheco/nodeshot/internal/platform/db"
	"github.com/donpacheco/nodeshot/internal/shared"
	"github.com/donpacheco/nodeshot/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "nodeshot_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	actorRepo := actors.NewRepository(dbpool)
	actorService := actors.NewService(actorRepo)
	authHandler := actors.NewHandler(logger, actorService, sessionManager, csrfManager)

	directoryCache := directory.NewCache(redisClient, cfg.DirectoryTTL)
	directorySource := directory.NewPGSource(dbpool)
	directoryService := directory.NewService(directorySource, directoryCache)
	directoryHandler := directory.NewHandler(logger, directoryService, actorService)

	layerRepo := layers.NewRepository(dbpool)
	layerService := layers.NewService(layerRepo, directoryCache, logger)
	layerHandler := layers.NewHandler(logger, layerService, actorService)

	nodeRepo := nodes.NewRepository(dbpool)
	nodeService := nodes.NewService(nodeRepo, directoryCache, logger)
	nodeHandler := nodes.NewHandler(logger, nodeService, actorService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		LayersHandler:    layerHandler,
		NodesHandler:     nodeHandler,
		DirectoryHandler: directoryHandler,
		JobsHandler:      jobsHandler,
		Pool:             dbpool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
