// Package queue coordinates background verification jobs: a bounded
// pool of workers pulls jobs from a shared FIFO queue, drives each
// job's TaskRecord through its lifecycle, and persists results into the
// result store keyed by claim ID.
//
// The queue is strictly in-process: no persistence across restarts and
// no cross-process coordination.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
	"github.com/veridict/veridict/internal/storage"
)

// Queue defaults.
const (
	// DefaultMaxWorkers is the default worker pool size.
	DefaultMaxWorkers = 5

	// DefaultPollInterval bounds how long an idle worker waits for work
	// before re-checking the stop signal.
	DefaultPollInterval = 250 * time.Millisecond
)

// Errors returned by queue operations.
var (
	// ErrNilJob indicates that QueueTask was called without a job
	// function.
	ErrNilJob = errors.New("job function cannot be nil")

	// ErrEmptyClaimID indicates that QueueTask was called without a
	// claim ID.
	ErrEmptyClaimID = errors.New("claim id cannot be empty")
)

// JobFunc is the unit of work a worker executes. It receives the live
// TaskRecord so it can report incremental progress, and returns the
// result to store under the task's claim ID.
type JobFunc func(ctx context.Context, record *domain.TaskRecord) (any, error)

// Config controls the worker pool.
type Config struct {
	// MaxWorkers is the fixed size of the worker pool.
	MaxWorkers int `yaml:"max_workers" json:"max_workers" validate:"min=1,max=128"`

	// PollInterval is the idle dequeue timeout. Shorter values make
	// shutdown more responsive at the cost of idle wakeups.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// DefaultConfig returns the production defaults: five workers with a
// 250ms idle poll.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:   DefaultMaxWorkers,
		PollInterval: DefaultPollInterval,
	}
}

var validate = validator.New()

// workItem is one queued job reference. The TaskRecord itself lives in
// the task map; the work queue carries only the key and the callable.
type workItem struct {
	taskID string
	job    JobFunc
}

// Stats is a point-in-time view of the queue, computed by scanning the
// task map on demand rather than by maintained counters, so the figures
// cannot drift from the records themselves.
type Stats struct {
	QueueSize    int  `json:"queue_size"`
	TotalTasks   int  `json:"total_tasks"`
	Pending      int  `json:"pending"`
	Processing   int  `json:"processing"`
	Completed    int  `json:"completed"`
	Failed       int  `json:"failed"`
	WorkersCount int  `json:"workers_count"`
	IsRunning    bool `json:"is_running"`

	Storage storage.Stats `json:"storage"`
}

// TaskQueue distributes verification jobs across a fixed-size worker
// pool. All exported methods are safe for concurrent use.
//
// Each work item is dequeued by exactly one worker, so no two workers
// ever drive the same TaskRecord. The task map is the only structure
// shared across workers and callers, and is guarded by a single mutex.
type TaskQueue struct {
	config  Config
	store   *storage.ResultStore
	logger  *slog.Logger
	metrics ports.MetricsCollector

	mu      sync.Mutex
	tasks   map[string]*domain.TaskRecord
	pending []workItem
	running bool
	workers int

	// notify wakes at most one idle worker when work arrives; the rest
	// pick the item up on their next poll.
	notify chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a TaskQueue.
type Option func(*TaskQueue)

// WithMetrics attaches a metrics collector. Without one, the queue
// records nothing.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(q *TaskQueue) { q.metrics = m }
}

// New creates a TaskQueue that persists completed results into store.
func New(cfg Config, store *storage.ResultStore, logger *slog.Logger, opts ...Option) (*TaskQueue, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if store == nil {
		return nil, errors.New("result store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &TaskQueue{
		config: cfg,
		store:  store,
		logger: logger.With("component", "task_queue"),
		tasks:  make(map[string]*domain.TaskRecord),
		notify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// QueueTask registers a new job and returns its TaskRecord immediately;
// it never blocks on worker availability because the underlying queue
// is unbounded.
//
// ClaimID is the logical key the result will be stored under. Queueing
// two jobs for the same claim ID concurrently is allowed; the result
// store keeps whichever finishes last (last-write-wins).
func (q *TaskQueue) QueueTask(claimID, claimText string, job JobFunc) (*domain.TaskRecord, error) {
	if claimID == "" {
		return nil, ErrEmptyClaimID
	}
	if job == nil {
		return nil, ErrNilJob
	}

	taskID := uuid.NewString()
	record := domain.NewTaskRecord(taskID, claimID, claimText)

	q.mu.Lock()
	q.tasks[taskID] = record
	q.pending = append(q.pending, workItem{taskID: taskID, job: job})
	depth := len(q.pending)
	q.mu.Unlock()

	// Non-blocking wake of one idle worker.
	select {
	case q.notify <- struct{}{}:
	default:
	}

	q.recordCounter("tasks_queued", 1)
	q.recordGauge("queue_depth", float64(depth))
	q.logger.Debug("task queued", "task_id", taskID, "claim_id", claimID)
	return record, nil
}

// GetTaskStatus returns the live TaskRecord for a task ID. Callers
// should read it through Snapshot; the returned reference stays valid
// for the life of the process because records are never deleted.
func (q *TaskQueue) GetTaskStatus(taskID string) (*domain.TaskRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	record, ok := q.tasks[taskID]
	return record, ok
}

// GetResult returns the stored result for a claim ID, or false if none
// exists or it has expired.
func (q *TaskQueue) GetResult(claimID string) (any, bool) {
	return q.store.GetResult(claimID)
}

// StartWorkers spawns the worker pool and the result store's cleanup
// loop. Calling it while already running is a logged no-op.
func (q *TaskQueue) StartWorkers() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		q.logger.Warn("workers already running")
		return
	}
	q.running = true
	q.workers = q.config.MaxWorkers

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.wg.Add(q.config.MaxWorkers)
	for i := 0; i < q.config.MaxWorkers; i++ {
		go q.worker(ctx, i)
	}
	q.mu.Unlock()

	q.store.StartCleanupLoop(0)
	q.logger.Info("workers started", "count", q.config.MaxWorkers)
}

// StopWorkers signals every worker to stop and waits up to timeout for
// a graceful exit. A job that does not honor cancellation promptly can
// push the shutdown past the timeout; that is logged as a warning, not
// treated as fatal. The cleanup loop is stopped as well.
func (q *TaskQueue) StopWorkers(timeout time.Duration) {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.workers = 0
	cancel := q.cancel
	q.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("workers stopped")
	case <-time.After(timeout):
		q.logger.Warn("workers did not stop within timeout", "timeout", timeout)
	}

	q.store.StopCleanupLoop()
}

// IsRunning reports whether the worker pool is active.
func (q *TaskQueue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// GetStats computes a point-in-time view of the queue by scanning the
// task map.
func (q *TaskQueue) GetStats() Stats {
	q.mu.Lock()
	stats := Stats{
		QueueSize:    len(q.pending),
		TotalTasks:   len(q.tasks),
		WorkersCount: q.workers,
		IsRunning:    q.running,
	}
	records := make([]*domain.TaskRecord, 0, len(q.tasks))
	for _, r := range q.tasks {
		records = append(records, r)
	}
	q.mu.Unlock()

	for _, r := range records {
		switch {
		case r.IsState(domain.TaskPending):
			stats.Pending++
		case r.IsState(domain.TaskProcessing):
			stats.Processing++
		case r.IsState(domain.TaskCompleted):
			stats.Completed++
		case r.IsState(domain.TaskFailed):
			stats.Failed++
		}
	}
	stats.Storage = q.store.Stats()
	return stats
}

func (q *TaskQueue) recordCounter(metric string, v float64) {
	if q.metrics != nil {
		q.metrics.RecordCounter(metric, v, nil)
	}
}

func (q *TaskQueue) recordGauge(metric string, v float64) {
	if q.metrics != nil {
		q.metrics.RecordGauge(metric, v, nil)
	}
}

func (q *TaskQueue) recordLatency(operation string, d time.Duration) {
	if q.metrics != nil {
		q.metrics.RecordLatency(operation, d, nil)
	}
}
