package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atrium-admin/atrium/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ActivityPruner deletes audit entries older than a cutoff.
type ActivityPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityPruneJob enforces the audit log retention window.
type ActivityPruneJob struct {
	Repo      ActivityPruner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewActivityPruneJob wires dependencies for the prune handler.
func NewActivityPruneJob(repo ActivityPruner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityPruneJob {
	return &ActivityPruneJob{
		Repo:      repo,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes activity prune tasks.
func (j *ActivityPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("activity prune: handler not configured")
	}
	var payload ActivityPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if retention <= 0 {
		retention = 180 * 24 * time.Hour
	}

	tracker := j.metrics().Track(TaskActivityPrune)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := j.now().Add(-retention)
	deleted, err := j.Repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("prune activities", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("pruned activities", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	return resultErr
}

func (j *ActivityPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskActivityPrune))
	}
	return slog.Default().With(slog.String("job", TaskActivityPrune))
}

func (j *ActivityPruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ActivityPruneJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
