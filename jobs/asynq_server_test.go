package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTriggerUnsupportedJob(t *testing.T) {
	client, err := NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:6379"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Trigger(context.Background(), "bogus:job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported job")
}

func TestClientTriggerNotConfigured(t *testing.T) {
	var client *Client
	_, err := client.Trigger(context.Background(), TaskStatsWarmup)
	assert.Error(t, err)
}

func TestClientTriggerDispatchesKnownJobs(t *testing.T) {
	// An unreachable broker: a known name must fail on the enqueue itself,
	// never on name dispatch.
	client, err := NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, name := range []string{TaskActivityPrune, TaskStatsWarmup} {
		_, err := client.Trigger(ctx, name)
		require.Error(t, err, name)
		assert.NotContains(t, err.Error(), "unsupported job", name)
	}
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:6379"},
		Cron:      []CronRegistration{{Spec: "not a cron spec", Task: NewStatsWarmupTask()}},
	})
	assert.Error(t, err)
}
