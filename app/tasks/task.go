// Package tasks runs source probes and the source table sync on a small
// worker pool. Failed tasks are re-enqueued with exponential backoff until
// their retry budget is spent.
package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeProbeSource TaskType = "probe_source"
	TaskTypeSyncSources TaskType = "sync_sources"
)

// DefaultMaxRetries applies to task types without an entry in retryBudgets.
const DefaultMaxRetries = 3

// A probe is superseded by the next periodic probe of the same source. The
// sync runs once at startup and nothing replaces it.
var retryBudgets = map[TaskType]int{
	TaskTypeProbeSource: 2,
	TaskTypeSyncSources: 5,
}

// RetryBudget reports how many times a failed task of this type is retried.
func RetryBudget(taskType TaskType) int {
	if budget, ok := retryBudgets[taskType]; ok {
		return budget
	}
	return DefaultMaxRetries
}

// TaskInterface is what the scheduler needs from a unit of work.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	// GetSourceID is empty for tasks that span every source.
	GetSourceID() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by probe and sync tasks. Concrete
// tasks embed it and supply Execute.
type Task struct {
	ID         string
	Type       TaskType
	SourceID   string
	RetryCount int
	MaxRetries int
	// StartedAt is reset on every attempt, so durations cover one run.
	StartedAt time.Time
}

func NewTask(taskType TaskType, sourceID string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		SourceID:   sourceID,
		MaxRetries: RetryBudget(taskType),
	}
}

func (t *Task) GetID() string       { return t.ID }
func (t *Task) GetType() TaskType   { return t.Type }
func (t *Task) GetSourceID() string { return t.SourceID }
func (t *Task) GetRetryCount() int  { return t.RetryCount }
func (t *Task) GetMaxRetries() int  { return t.MaxRetries }

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	t.StartedAt = time.Now()
}

// GetDuration is zero until the first attempt starts.
func (t *Task) GetDuration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}
