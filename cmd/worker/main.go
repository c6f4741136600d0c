package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/donpacheco/nodeshot/internal/app"
	"github.com/donpacheco/nodeshot/internal/directory"
	jobmetrics "github.com/donpacheco/nodeshot/internal/jobs"
	"github.com/donpacheco/nodeshot/internal/nodes"
	"github.com/donpacheco/nodeshot/internal/platform/cache"
	"github.com/donpacheco/nodeshot/internal/platform/db"
	"github.com/donpacheco/nodeshot/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := jobmetrics.NewMetrics(nil)

	directoryCache := directory.NewCache(redisClient, cfg.DirectoryTTL)
	directorySource := directory.NewPGSource(pool)
	directoryService := directory.NewService(directorySource, directoryCache)
	warmupJob := jobs.NewDirectoryWarmupJob(directoryService, logger, metrics)

	nodeRepo := nodes.NewRepository(pool)
	nodeService := nodes.NewService(nodeRepo, directoryCache, logger)
	sweepJob := jobs.NewStatusSweepJob(nodeService, logger, metrics, cfg.StatusSweepWindow)

	warmupTask, err := jobs.NewDirectoryWarmupTask(jobs.DirectoryWarmupPayload{Reason: "scheduled"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewStatusSweepTask(jobs.StatusSweepPayload{Window: cfg.StatusSweepWindow})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDirectoryWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskStatusSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
