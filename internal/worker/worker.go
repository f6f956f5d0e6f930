// Package worker runs the durable background task queue.
//
// Tasks live in the background_tasks table. A single goroutine polls for due
// tasks, claims each one with a conditional UPDATE and dispatches it to the
// JobHandler registered for its kind. Failures are retried with exponential
// backoff until the attempt budget is spent.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
)

// Store is the persistence the worker needs. *repository.Queries satisfies it.
type Store interface {
	ListDueTaskIDs(ctx context.Context, arg repository.ListDueTaskIDsParams) ([]string, error)
	ClaimTask(ctx context.Context, arg repository.ClaimTaskParams) (repository.BackgroundTask, error)
	CompleteTask(ctx context.Context, arg repository.CompleteTaskParams) error
	RetryTask(ctx context.Context, arg repository.RetryTaskParams) error
	FailTask(ctx context.Context, arg repository.FailTaskParams) error
	RecoverStaleTasks(ctx context.Context, arg repository.RecoverStaleTasksParams) (int64, error)
	FailExhaustedStaleTasks(ctx context.Context, arg repository.FailExhaustedStaleTasksParams) (int64, error)
}

// staleFailureMessage is recorded on tasks whose final attempt never finished.
const staleFailureMessage = "worker stopped during the final attempt"

// maxBackoffExponent caps 2^attempts minutes at roughly eleven days.
const maxBackoffExponent = 14

// Backoff returns the retry delay after the given number of attempts.
func Backoff(attempts int32) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > maxBackoffExponent {
		attempts = maxBackoffExponent
	}
	return time.Duration(1<<uint(attempts)) * time.Minute
}

// Worker processes background tasks. Create with New, register a handler for
// every task kind, then Start and eventually Stop.
type Worker struct {
	store    Store
	handlers map[domain.TaskKind]JobHandler
	config   Config
	logger   *slog.Logger
	now      func() time.Time

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// New creates a Worker. It does not start processing.
func New(store Store, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		store:    store,
		handlers: make(map[domain.TaskKind]JobHandler),
		config:   config,
		logger:   logger.With("component", "worker"),
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Register adds a handler. Call before Start.
func (w *Worker) Register(handler JobHandler) {
	kind := handler.Kind()
	if _, exists := w.handlers[kind]; exists {
		w.logger.Warn("overwriting existing handler", "task", kind)
	}
	w.handlers[kind] = handler
	w.logger.Debug("registered task handler", "task", kind)
}

// checkHandlers fails unless every task kind has a handler.
func (w *Worker) checkHandlers() error {
	var missing []domain.TaskKind
	for _, kind := range domain.TaskKinds {
		if _, ok := w.handlers[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no handler registered for task kinds %v", missing)
	}
	return nil
}

// Start recovers stale tasks and launches the polling loop. It returns an
// error without starting anything if a task kind has no handler.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.checkHandlers(); err != nil {
		return err
	}

	if err := w.recoverStaleTasks(ctx); err != nil {
		w.logger.Error("failed to recover stale tasks", "error", err)
	}

	w.started.Store(true)
	go w.run(ctx)

	w.logger.Info("worker started",
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize,
	)
	return nil
}

// Stop signals the loop to exit and waits for the in-flight task, up to
// ShutdownTimeout. Tasks not yet claimed stay Queued.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("stopping worker")
		close(w.stopCh)
	})
	if !w.started.Load() {
		return
	}

	select {
	case <-w.done:
		w.logger.Info("worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timeout exceeded, in-flight task will be recovered on next start")
	}
}

func (w *Worker) recoverStaleTasks(ctx context.Context) error {
	now := w.now()
	startedBefore := now.Add(-w.config.StaleTaskThreshold)

	failed, err := w.store.FailExhaustedStaleTasks(ctx, repository.FailExhaustedStaleTasksParams{
		StartedBefore: startedBefore,
		CompletedAt:   now,
		ErrorMessage:  sql.NullString{String: staleFailureMessage, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("fail exhausted stale tasks: %w", err)
	}
	if failed > 0 {
		w.logger.Warn("failed stale tasks with no attempts left", "count", failed)
	}

	count, err := w.store.RecoverStaleTasks(ctx, repository.RecoverStaleTasksParams{
		StartedBefore: startedBefore,
		ScheduledAt:   now,
	})
	if err != nil {
		return fmt.Errorf("recover stale tasks: %w", err)
	}

	if count > 0 {
		metrics.TasksRecoveredAdd(count)
		w.logger.Warn("recovered stale tasks", "count", count, "threshold", w.config.StaleTaskThreshold)
	}
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("failed to process batch", "error", err)
		}

		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) stopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// RunOnce processes a single batch of due tasks and returns how many were
// executed. It stops between tasks once Stop has been called.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	ids, err := w.store.ListDueTaskIDs(ctx, repository.ListDueTaskIDsParams{
		Now:   w.now(),
		Limit: int32(w.config.BatchSize),
	})
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	processed := 0
	for _, id := range ids {
		if w.stopping() || ctx.Err() != nil {
			break
		}

		ran, err := w.processTask(ctx, id)
		if err != nil {
			w.logger.Error("failed to process task", "task_id", id, "error", err)
			continue
		}
		if ran {
			processed++
		}
	}
	return processed, nil
}

// processTask claims and executes one task. It reports false when the task
// was no longer Queued at claim time.
func (w *Worker) processTask(ctx context.Context, id string) (bool, error) {
	task, err := w.store.ClaimTask(ctx, repository.ClaimTaskParams{
		ID:        id,
		StartedAt: w.now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Debug("task no longer queued, skipping", "task_id", id)
			return false, nil
		}
		return false, fmt.Errorf("claim task: %w", err)
	}

	logger := w.logger.With("task_id", task.ID, "task", task.TaskName, "attempt", task.Attempts)
	logger.Info("processing task")

	// Neither Stop nor cancellation of the loop context interrupts a claimed
	// task; JobTimeout still applies.
	execCtx := context.WithoutCancel(ctx)

	metrics.TaskStarted()
	start := time.Now()
	execErr := w.execute(execCtx, task)
	duration := time.Since(start)

	if execErr == nil {
		metrics.TaskFinished(task.TaskName, "completed", duration)
		logger.Info("task completed", "duration", duration)
		if err := w.store.CompleteTask(execCtx, repository.CompleteTaskParams{
			ID:          task.ID,
			CompletedAt: w.now(),
		}); err != nil {
			return true, fmt.Errorf("mark task completed: %w", err)
		}
		return true, nil
	}

	message := sql.NullString{String: execErr.Error(), Valid: true}

	if IsPermanent(execErr) || task.Attempts >= task.MaxAttempts {
		metrics.TaskFinished(task.TaskName, "failed", duration)
		logger.Error("task failed", "error", execErr, "permanent", IsPermanent(execErr))
		if err := w.store.FailTask(execCtx, repository.FailTaskParams{
			ID:           task.ID,
			CompletedAt:  w.now(),
			ErrorMessage: message,
		}); err != nil {
			return true, fmt.Errorf("mark task failed: %w", err)
		}
		return true, nil
	}

	delay := Backoff(task.Attempts)
	metrics.TaskFinished(task.TaskName, "retried", duration)
	logger.Warn("task failed, will retry", "error", execErr, "retry_in", delay)
	if err := w.store.RetryTask(execCtx, repository.RetryTaskParams{
		ID:           task.ID,
		ScheduledAt:  w.now().Add(delay),
		ErrorMessage: message,
	}); err != nil {
		return true, fmt.Errorf("reschedule task: %w", err)
	}
	return true, nil
}

// execute decodes the payload and runs the handler under JobTimeout.
func (w *Worker) execute(ctx context.Context, task repository.BackgroundTask) error {
	kind := domain.TaskKind(task.TaskName)

	handler, ok := w.handlers[kind]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler registered for task kind %q", kind))
	}

	payload, err := domain.DecodeTaskPayload(kind, task.TaskData)
	if err != nil {
		return NewPermanentError(err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, payload)
}
