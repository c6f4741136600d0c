package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/donpacheco/nodeshot/internal/jobs"
	"github.com/donpacheco/nodeshot/internal/nodes"
)

// StatusSweepJob demotes active nodes whose last check-in is older than the
// configured window.
type StatusSweepJob struct {
	Nodes   *nodes.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics

	// DefaultWindow applies when the payload omits a window.
	DefaultWindow time.Duration
}

// NewStatusSweepJob wires dependencies for the sweep handler.
func NewStatusSweepJob(nodeSvc *nodes.Service, logger *slog.Logger, metrics *jobmetrics.Metrics, defaultWindow time.Duration) *StatusSweepJob {
	return &StatusSweepJob{Nodes: nodeSvc, Logger: logger, Metrics: metrics, DefaultWindow: defaultWindow}
}

// Handle processes stale-node sweep tasks.
func (j *StatusSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Nodes == nil {
		return errors.New("status sweep: handler not configured")
	}
	var payload StatusSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := payload.Window
	if window <= 0 {
		window = j.DefaultWindow
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}

	tracker := j.metrics().Track(TaskStatusSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("window", window))
	logger.Info("starting status sweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	demoted, err := j.Nodes.SweepStale(sweepCtx, window)
	if err != nil {
		resultErr = err
		logger.Error("status sweep failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddDemotedNodes(demoted)

	logger.Info("completed status sweep", slog.Int64("demoted", demoted))
	return resultErr
}

func (j *StatusSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatusSweep))
	}
	return slog.Default().With(slog.String("job", TaskStatusSweep))
}

func (j *StatusSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
