package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/google/uuid"
)

// DefaultMaxAttempts is used when WithMaxAttempts is not given.
const DefaultMaxAttempts = 3

// TaskInserter persists new tasks. *repository.Queries satisfies it.
type TaskInserter interface {
	EnqueueTask(ctx context.Context, arg repository.EnqueueTaskParams) (repository.BackgroundTask, error)
}

// EnqueueOption customises the stored task.
type EnqueueOption func(*repository.EnqueueTaskParams)

// WithMaxAttempts sets the maximum number of executions.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueTaskParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the task to run delay after enqueue.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueTaskParams) {
		p.ScheduledAt = p.CreatedAt.Add(delay)
	}
}

// WithScheduledAt schedules the task for an explicit time.
func WithScheduledAt(at time.Time) EnqueueOption {
	return func(p *repository.EnqueueTaskParams) {
		p.ScheduledAt = at
	}
}

// Enqueue validates payload and stores it as a Queued task with a fresh id.
func Enqueue(
	ctx context.Context,
	store TaskInserter,
	payload domain.TaskPayload,
	opts ...EnqueueOption,
) (repository.BackgroundTask, error) {
	if err := payload.Validate(); err != nil {
		return repository.BackgroundTask{}, fmt.Errorf("enqueue %s: %w", payload.Kind(), err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return repository.BackgroundTask{}, fmt.Errorf("marshal %s payload: %w", payload.Kind(), err)
	}

	now := time.Now().UTC()
	params := repository.EnqueueTaskParams{
		ID:          uuid.NewString(),
		TaskName:    string(payload.Kind()),
		TaskData:    data,
		CreatedAt:   now,
		ScheduledAt: now,
		MaxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&params)
	}
	if params.MaxAttempts < 1 {
		return repository.BackgroundTask{}, fmt.Errorf("enqueue %s: max attempts must be at least 1", payload.Kind())
	}

	task, err := store.EnqueueTask(ctx, params)
	if err != nil {
		return repository.BackgroundTask{}, fmt.Errorf("enqueue %s: %w", payload.Kind(), err)
	}

	metrics.TaskEnqueued(task.TaskName)
	return task, nil
}
