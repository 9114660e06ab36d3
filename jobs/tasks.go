package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskActivityPrune trims audit entries past the retention window.
	TaskActivityPrune = "activity:prune"
	// TaskStatsWarmup recomputes the cached dashboard overview.
	TaskStatsWarmup = "stats:warmup"
)

// ActivityPrunePayload carries an optional retention override in hours.
// Zero means use the configured default.
type ActivityPrunePayload struct {
	RetentionHours int `json:"retentionHours,omitempty"`
}

// NewActivityPruneTask constructs an activity prune task.
func NewActivityPruneTask(payload ActivityPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPrune, data), nil
}

// NewStatsWarmupTask constructs a stats warmup task.
func NewStatsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskStatsWarmup, nil)
}
