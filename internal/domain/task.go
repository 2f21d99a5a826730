package domain

import (
	"sync"
	"time"
)

// TaskState tracks a background verification job's lifecycle.
// Transitions are forward-only: Pending -> Processing -> Completed or
// Failed. No state is ever revisited.
type TaskState string

// Task lifecycle states.
const (
	TaskPending    TaskState = "pending"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
)

// Terminal returns true for the two terminal states.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskRecord tracks one background verification job from enqueue to
// terminal state. The queue owns the record for its lifetime; the worker
// executing the job holds a reference and is the only goroutine that
// drives state transitions, so transitions never race. External callers
// read the record through Snapshot.
//
// Records are never deleted; they accumulate for the life of the
// process. Only stored results carry a TTL.
type TaskRecord struct {
	mu sync.Mutex

	// TaskID is the generator-assigned unique identifier, never reused.
	TaskID string `json:"task_id"`

	// ClaimID is the caller-supplied logical key used for result lookup.
	// It is distinct from TaskID.
	ClaimID string `json:"claim_id"`

	// ClaimText is the text being verified.
	ClaimText string `json:"claim_text"`

	// State is the current lifecycle state.
	State TaskState `json:"state"`

	// CreatedAt, StartedAt, and CompletedAt are set exactly once when
	// the corresponding transition occurs.
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Progress is a 0-100 completion percentage, clamped on every
	// update. It starts at 0, jumps to 10 on Processing, and reaches
	// 100 on Completed.
	Progress int `json:"progress"`

	// Result is populated only when State is Completed.
	Result any `json:"result,omitempty"`

	// Error is populated only when State is Failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of retry attempts the job consumed.
	// Incrementing it does not transition state.
	RetryCount int `json:"retry_count"`
}

// NewTaskRecord creates a record in the Pending state.
func NewTaskRecord(taskID, claimID, claimText string) *TaskRecord {
	return &TaskRecord{
		TaskID:    taskID,
		ClaimID:   claimID,
		ClaimText: claimText,
		State:     TaskPending,
		CreatedAt: time.Now(),
	}
}

// MarkProcessing transitions the record to Processing, stamps StartedAt,
// and sets progress to 10. The worker loop calls this exactly once per
// job; a second call would reset StartedAt and progress.
func (t *TaskRecord) MarkProcessing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.State = TaskProcessing
	t.StartedAt = &now
	t.Progress = 10
}

// MarkCompleted transitions the record to the Completed terminal state,
// attaches the result, and forces progress to 100. Mutually exclusive
// with MarkFailed; the worker loop never calls either twice.
func (t *TaskRecord) MarkCompleted(result any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.State = TaskCompleted
	t.CompletedAt = &now
	t.Progress = 100
	t.Result = result
}

// MarkFailed transitions the record to the Failed terminal state with a
// human-readable error message.
func (t *TaskRecord) MarkFailed(errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.State = TaskFailed
	t.CompletedAt = &now
	t.Error = errMsg
}

// UpdateProgress sets the completion percentage, clamping the value to
// [0, 100]. Job functions may call it any number of times between
// Processing and a terminal transition.
func (t *TaskRecord) UpdateProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	t.mu.Lock()
	t.Progress = p
	t.mu.Unlock()
}

// IncrementRetry bumps the retry counter by one.
func (t *TaskRecord) IncrementRetry() {
	t.mu.Lock()
	t.RetryCount++
	t.mu.Unlock()
}

// IsDone returns true once the record has reached a terminal state.
func (t *TaskRecord) IsDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State.Terminal()
}

// IsState reports whether the record is currently in the given state.
func (t *TaskRecord) IsState(s TaskState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State == s
}

// Snapshot returns a consistent copy of the record for callers and
// serialization. The copy is detached from the live record and safe to
// read freely; it may lag behind the live record, which is acceptable
// for progress reporting.
func (t *TaskRecord) Snapshot() *TaskRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := &TaskRecord{
		TaskID:     t.TaskID,
		ClaimID:    t.ClaimID,
		ClaimText:  t.ClaimText,
		State:      t.State,
		CreatedAt:  t.CreatedAt,
		Progress:   t.Progress,
		Result:     t.Result,
		Error:      t.Error,
		RetryCount: t.RetryCount,
	}
	if t.StartedAt != nil {
		started := *t.StartedAt
		cp.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		cp.CompletedAt = &completed
	}
	return cp
}
