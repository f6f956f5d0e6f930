package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
)

const (
	defaultTaskListLimit = 50
	maxTaskListLimit     = 500
)

// TaskService is the application's view of the background task queue.
type TaskService interface {
	// Enqueue stores payload as a new Queued task.
	Enqueue(ctx context.Context, payload domain.TaskPayload, opts ...worker.EnqueueOption) (*domain.Task, error)

	// Cancel cancels a Queued task. It reports false, without error, when the
	// task is absent or no longer Queued.
	Cancel(ctx context.Context, id string) (bool, error)

	// IsQueued reports whether the task exists and is still Queued.
	IsQueued(ctx context.Context, id string) (bool, error)

	// QueueCount returns the number of Queued tasks.
	QueueCount(ctx context.Context) (int64, error)

	// Get returns the task, or nil if it does not exist.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// List returns the newest tasks, optionally only those in status.
	List(ctx context.Context, status domain.TaskStatus, limit int32) ([]domain.Task, error)

	// Stats counts tasks per status.
	Stats(ctx context.Context) (*domain.TaskStats, error)
}

type taskService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

func NewTaskService(queries *repository.Queries, logger *slog.Logger) TaskService {
	return &taskService{queries: queries, logger: logger}
}

func (s *taskService) Enqueue(ctx context.Context, payload domain.TaskPayload, opts ...worker.EnqueueOption) (*domain.Task, error) {
	const op = "task.enqueue"

	if err := payload.Validate(); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, err.Error())
	}

	row, err := worker.Enqueue(ctx, s.queries, payload, opts...)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to enqueue task")
	}

	s.logger.Info("task enqueued", "task_id", row.ID, "task", row.TaskName, "scheduled_at", row.ScheduledAt)
	return taskToDomain(row), nil
}

func (s *taskService) Cancel(ctx context.Context, id string) (bool, error) {
	const op = "task.cancel"

	n, err := s.queries.CancelTask(ctx, repository.CancelTaskParams{
		ID:          id,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, domain.Internal(err, op, "failed to cancel task")
	}
	if n > 0 {
		s.logger.Info("task cancelled", "task_id", id)
	}
	return n > 0, nil
}

func (s *taskService) IsQueued(ctx context.Context, id string) (bool, error) {
	queued, err := s.queries.IsTaskQueued(ctx, id)
	if err != nil {
		return false, domain.Internal(err, "task.is_queued", "failed to check task")
	}
	return queued, nil
}

func (s *taskService) QueueCount(ctx context.Context) (int64, error) {
	n, err := s.queries.CountQueuedTasks(ctx)
	if err != nil {
		return 0, domain.Internal(err, "task.queue_count", "failed to count queued tasks")
	}
	return n, nil
}

func (s *taskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	row, err := s.queries.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "task.get", "failed to get task")
	}
	return taskToDomain(row), nil
}

func (s *taskService) List(ctx context.Context, status domain.TaskStatus, limit int32) ([]domain.Task, error) {
	const op = "task.list"

	if status != "" && !status.IsValid() {
		return nil, domain.NewValidationError(op, "status", "Status must be one of Queued, Processing, Completed, Failed or Cancelled")
	}
	if limit <= 0 {
		limit = defaultTaskListLimit
	}
	if limit > maxTaskListLimit {
		limit = maxTaskListLimit
	}

	rows, err := s.queries.ListTasks(ctx, repository.ListTasksParams{
		Status: domain.ToNullString(string(status)),
		Limit:  limit,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list tasks")
	}

	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, *taskToDomain(row))
	}
	return tasks, nil
}

func (s *taskService) Stats(ctx context.Context) (*domain.TaskStats, error) {
	rows, err := s.queries.CountTasksByStatus(ctx)
	if err != nil {
		return nil, domain.Internal(err, "task.stats", "failed to count tasks")
	}

	stats := &domain.TaskStats{}
	for _, row := range rows {
		stats.Add(domain.TaskStatus(row.Status), row.Count)
	}
	return stats, nil
}
