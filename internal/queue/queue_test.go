package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/retry"
	"github.com/veridict/veridict/internal/storage"
)

func newTestQueue(t *testing.T, workers int) *TaskQueue {
	t.Helper()
	store := storage.New(storage.Config{
		ResultTTL:       time.Minute,
		CleanupInterval: time.Minute,
	}, slog.Default())
	q, err := New(Config{
		MaxWorkers:   workers,
		PollInterval: 10 * time.Millisecond,
	}, store, slog.Default())
	require.NoError(t, err)
	return q
}

func waitForState(t *testing.T, record *domain.TaskRecord, state domain.TaskState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return record.IsState(state)
	}, 5*time.Second, 5*time.Millisecond, "task never reached state %s", state)
}

func TestNew_Validation(t *testing.T) {
	store := storage.New(storage.DefaultConfig(), nil)

	_, err := New(Config{MaxWorkers: 0}, store, nil)
	require.Error(t, err, "zero workers must be rejected")

	_, err = New(DefaultConfig(), nil, nil)
	require.Error(t, err, "missing store must be rejected")
}

func TestQueueTask_Validation(t *testing.T) {
	q := newTestQueue(t, 1)

	_, err := q.QueueTask("", "text", func(context.Context, *domain.TaskRecord) (any, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, ErrEmptyClaimID)

	_, err = q.QueueTask("claim-1", "text", nil)
	require.ErrorIs(t, err, ErrNilJob)
}

func TestQueueTask_ReturnsPendingRecordImmediately(t *testing.T) {
	q := newTestQueue(t, 1)
	// Workers intentionally not started: the record must be registered
	// and pending regardless.

	record, err := q.QueueTask("claim-1", "the sky is blue", func(context.Context, *domain.TaskRecord) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	assert.NotEmpty(t, record.TaskID)
	assert.Equal(t, "claim-1", record.ClaimID)
	assert.True(t, record.IsState(domain.TaskPending))
	assert.Zero(t, record.Snapshot().Progress)

	got, ok := q.GetTaskStatus(record.TaskID)
	require.True(t, ok)
	assert.Same(t, record, got)
}

func TestQueue_EndToEndSuccess(t *testing.T) {
	q := newTestQueue(t, 2)
	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	record, err := q.QueueTask("claim-1", "water boils at 100C", func(ctx context.Context, r *domain.TaskRecord) (any, error) {
		r.UpdateProgress(50)
		time.Sleep(30 * time.Millisecond)
		return map[string]any{"ok": true}, nil
	})
	require.NoError(t, err)

	// Immediately after queueing the task is pending or already picked
	// up, never terminal.
	snap := record.Snapshot()
	assert.Contains(t, []domain.TaskState{domain.TaskPending, domain.TaskProcessing}, snap.State)

	waitForState(t, record, domain.TaskCompleted)

	snap = record.Snapshot()
	assert.Equal(t, 100, snap.Progress)
	assert.NotNil(t, snap.StartedAt)
	assert.NotNil(t, snap.CompletedAt)
	assert.Equal(t, map[string]any{"ok": true}, snap.Result)
	assert.Empty(t, snap.Error)

	result, found := q.GetResult("claim-1")
	require.True(t, found)
	assert.Equal(t, map[string]any{"ok": true}, result)
}

func TestQueue_JobErrorMarksFailed(t *testing.T) {
	q := newTestQueue(t, 1)
	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	record, err := q.QueueTask("claim-1", "text", func(context.Context, *domain.TaskRecord) (any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	waitForState(t, record, domain.TaskFailed)

	snap := record.Snapshot()
	assert.Contains(t, snap.Error, "boom")
	assert.Nil(t, snap.Result)

	_, found := q.GetResult("claim-1")
	assert.False(t, found, "failed jobs must not store a result")
}

func TestQueue_RetryExhaustionRecordsCount(t *testing.T) {
	q := newTestQueue(t, 1)
	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	exec, err := retry.New(retry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	require.NoError(t, err)

	record, err := q.QueueTask("claim-1", "text", func(ctx context.Context, r *domain.TaskRecord) (any, error) {
		taskExec := exec.WithOptions(retry.WithOnRetry(func(int, error) { r.IncrementRetry() }))
		return retry.DoWithResult(ctx, taskExec, func(context.Context) (any, error) {
			return nil, errors.New("boom")
		})
	})
	require.NoError(t, err)

	waitForState(t, record, domain.TaskFailed)

	snap := record.Snapshot()
	assert.Contains(t, snap.Error, "boom")
	assert.Contains(t, snap.Error, "3 attempts")
	assert.Equal(t, 2, snap.RetryCount)
}

func TestQueue_PanickingJobDoesNotKillWorker(t *testing.T) {
	q := newTestQueue(t, 1)
	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	bad, err := q.QueueTask("claim-bad", "text", func(context.Context, *domain.TaskRecord) (any, error) {
		panic("unexpected")
	})
	require.NoError(t, err)

	good, err := q.QueueTask("claim-good", "text", func(context.Context, *domain.TaskRecord) (any, error) {
		return "fine", nil
	})
	require.NoError(t, err)

	waitForState(t, bad, domain.TaskFailed)
	assert.Contains(t, bad.Snapshot().Error, "panicked")

	// The same single worker must still process the next job.
	waitForState(t, good, domain.TaskCompleted)
}

func TestQueue_LastWriteWinsForSameClaimID(t *testing.T) {
	q := newTestQueue(t, 1)
	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	first, err := q.QueueTask("claim-1", "text", func(context.Context, *domain.TaskRecord) (any, error) {
		return "first", nil
	})
	require.NoError(t, err)
	second, err := q.QueueTask("claim-1", "text", func(context.Context, *domain.TaskRecord) (any, error) {
		return "second", nil
	})
	require.NoError(t, err)

	waitForState(t, first, domain.TaskCompleted)
	waitForState(t, second, domain.TaskCompleted)

	// One worker preserves FIFO completion order, so the second job's
	// result is the one that remains.
	result, found := q.GetResult("claim-1")
	require.True(t, found)
	assert.Equal(t, "second", result)
}

func TestQueue_StartStopLifecycle(t *testing.T) {
	q := newTestQueue(t, 2)

	assert.False(t, q.IsRunning())
	q.StartWorkers()
	assert.True(t, q.IsRunning())

	// Second start is a logged no-op, not a second pool.
	q.StartWorkers()
	assert.Equal(t, 2, q.GetStats().WorkersCount)

	q.StopWorkers(time.Second)
	assert.False(t, q.IsRunning())
	assert.Zero(t, q.GetStats().WorkersCount)

	// Second stop is a no-op.
	q.StopWorkers(time.Second)
}

// recordingCollector captures the last value per gauge for assertions.
type recordingCollector struct {
	mu     sync.Mutex
	gauges map[string]float64
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{gauges: make(map[string]float64)}
}

func (c *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (c *recordingCollector) RecordCounter(string, float64, map[string]string) {}

func (c *recordingCollector) RecordGauge(metric string, value float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[metric] = value
}

func (c *recordingCollector) gauge(metric string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gauges[metric]
}

func TestQueue_DepthGaugeTracksDequeues(t *testing.T) {
	collector := newRecordingCollector()
	store := storage.New(storage.Config{
		ResultTTL:       time.Minute,
		CleanupInterval: time.Minute,
	}, slog.Default())
	q, err := New(Config{
		MaxWorkers:   1,
		PollInterval: 10 * time.Millisecond,
	}, store, slog.Default(), WithMetrics(collector))
	require.NoError(t, err)

	// Workers not started: enqueues raise the gauge without drains.
	for i := 0; i < 3; i++ {
		_, err := q.QueueTask(fmt.Sprintf("claim-%d", i), "text", func(context.Context, *domain.TaskRecord) (any, error) {
			return "done", nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, collector.gauge("queue_depth"))

	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	// Once the backlog drains, the gauge must report the current depth,
	// not the last enqueue-time high-water mark.
	assert.Eventually(t, func() bool {
		return q.GetStats().Completed == 3
	}, 5*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return collector.gauge("queue_depth") == 0.0
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_GetStats(t *testing.T) {
	q := newTestQueue(t, 2)
	q.StartWorkers()
	defer q.StopWorkers(time.Second)

	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		_, err := q.QueueTask(fmt.Sprintf("claim-%d", i), "text", func(context.Context, *domain.TaskRecord) (any, error) {
			<-release
			return "done", nil
		})
		require.NoError(t, err)
	}

	// Two workers should be busy and one task still queued or pending.
	assert.Eventually(t, func() bool {
		return q.GetStats().Processing == 2
	}, time.Second, 5*time.Millisecond)

	stats := q.GetStats()
	assert.Equal(t, 3, stats.TotalTasks)
	assert.True(t, stats.IsRunning)
	assert.Equal(t, 2, stats.WorkersCount)

	close(release)
	assert.Eventually(t, func() bool {
		return q.GetStats().Completed == 3
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, q.GetStats().Storage.Entries)
}
