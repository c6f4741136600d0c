package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDirectoryWarmup rebuilds the cached node directory for every tier.
	TaskDirectoryWarmup = "directory:warmup"
	// TaskStatusSweep demotes nodes that have not reported recently.
	TaskStatusSweep = "nodes:status_sweep"
)

// DirectoryWarmupPayload carries parameters for directory warmup runs.
type DirectoryWarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// StatusSweepPayload carries parameters for a stale-node sweep.
type StatusSweepPayload struct {
	Window time.Duration `json:"window"`
}

// NewDirectoryWarmupTask constructs an Asynq task.
func NewDirectoryWarmupTask(payload DirectoryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectoryWarmup, data), nil
}

// NewStatusSweepTask constructs an Asynq task.
func NewStatusSweepTask(payload StatusSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatusSweep, data), nil
}
