package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/veridict/veridict/internal/domain"
)

// worker is one loop of the pool. It dequeues with a bounded wait so a
// stop signal is observed promptly even when the queue is idle, and it
// survives any individual job failure: only context cancellation ends
// the loop.
func (q *TaskQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger := q.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		item, ok := q.dequeue(ctx)
		if !ok {
			logger.Debug("worker stopping")
			return
		}
		if item == nil {
			// Idle poll expired with no work; loop to re-check the
			// stop signal.
			continue
		}
		q.runJob(ctx, *item, logger)
	}
}

// dequeue pops the oldest pending item. When the queue is empty it
// waits for a wake-up, the poll interval, or cancellation, whichever
// comes first. It returns (nil, true) on an idle timeout and
// (nil, false) once the context is cancelled.
func (q *TaskQueue) dequeue(ctx context.Context) (*workItem, bool) {
	q.mu.Lock()
	if len(q.pending) > 0 {
		item := q.pending[0]
		q.pending = q.pending[1:]
		depth := len(q.pending)
		q.mu.Unlock()
		// Keep the depth gauge current on both sides of the queue, not
		// just on enqueue.
		q.recordGauge("queue_depth", float64(depth))
		return &item, true
	}
	q.mu.Unlock()

	timer := time.NewTimer(q.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, false
	case <-q.notify:
		// Work may have arrived; take another pass. A competing worker
		// may win the race, in which case the next pass idles again.
		return nil, true
	case <-timer.C:
		return nil, true
	}
}

// runJob drives one work item through its TaskRecord lifecycle. Job
// errors are recorded on the TaskRecord, never propagated; bookkeeping
// problems are logged and the worker moves on.
func (q *TaskQueue) runJob(ctx context.Context, item workItem, logger *slog.Logger) {
	q.mu.Lock()
	record, ok := q.tasks[item.taskID]
	q.mu.Unlock()
	if !ok {
		// Should be impossible: items are enqueued only after their
		// record is registered.
		logger.Error("task record missing for queued item", "task_id", item.taskID)
		return
	}

	record.MarkProcessing()
	logger.Info("task processing", "task_id", item.taskID, "claim_id", record.ClaimID)

	start := time.Now()
	result, err := q.invoke(ctx, item.job, record)
	elapsed := time.Since(start)

	if err != nil {
		record.MarkFailed(err.Error())
		q.recordCounter("tasks_failed", 1)
		q.recordLatency("job_execution", elapsed)
		logger.Warn("task failed",
			"task_id", item.taskID,
			"claim_id", record.ClaimID,
			"duration", elapsed,
			"error", err)
		return
	}

	record.MarkCompleted(result)
	q.store.StoreResult(record.ClaimID, result)
	q.recordCounter("tasks_completed", 1)
	q.recordLatency("job_execution", elapsed)
	logger.Info("task completed",
		"task_id", item.taskID,
		"claim_id", record.ClaimID,
		"duration", elapsed)
}

// invoke runs the job callable, converting a panic into an ordinary
// error so a misbehaving job cannot kill its worker.
func (q *TaskQueue) invoke(ctx context.Context, job JobFunc, record *domain.TaskRecord) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx, record)
}
