package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/donpacheco/nodeshot/internal/directory"
	jobmetrics "github.com/donpacheco/nodeshot/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DirectoryWarmupJob rebuilds the cached directory snapshot for every tier so
// reads never pay the cold-cache cost.
type DirectoryWarmupJob struct {
	Directory *directory.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDirectoryWarmupJob wires dependencies for the warmup handler.
func NewDirectoryWarmupJob(dir *directory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DirectoryWarmupJob {
	return &DirectoryWarmupJob{Directory: dir, Logger: logger, Metrics: metrics}
}

// Handle processes directory warmup tasks.
func (j *DirectoryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Directory == nil {
		return errors.New("directory warmup: handler not configured")
	}
	var payload DirectoryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDirectoryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if payload.Reason != "" {
		logger = logger.With(slog.String("reason", payload.Reason))
	}
	logger.Info("starting directory warmup")

	start := time.Now()
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := j.Directory.Warm(warmCtx); err != nil {
		resultErr = err
		logger.Error("directory warmup failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed directory warmup", slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DirectoryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDirectoryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDirectoryWarmup))
}

func (j *DirectoryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
