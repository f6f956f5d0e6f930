// source: tasks.sql

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const taskColumns = `id, task_name, task_data, status, created_at, scheduled_at, started_at, completed_at, attempts, max_attempts, error_message`

func scanTask(row interface{ Scan(...interface{}) error }) (BackgroundTask, error) {
	var i BackgroundTask
	var data []byte
	err := row.Scan(
		&i.ID,
		&i.TaskName,
		&data,
		&i.Status,
		&i.CreatedAt,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.CompletedAt,
		&i.Attempts,
		&i.MaxAttempts,
		&i.ErrorMessage,
	)
	i.TaskData = json.RawMessage(data)
	return i, err
}

const cancelTask = `-- name: CancelTask :execrows
UPDATE background_tasks
SET status = 'Cancelled', completed_at = $2
WHERE id = $1 AND status = 'Queued'
`

type CancelTaskParams struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
}

// CancelTask affects zero rows unless the task is still Queued.
func (q *Queries) CancelTask(ctx context.Context, arg CancelTaskParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelTask, arg.ID, arg.CompletedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const claimTask = `-- name: ClaimTask :one
UPDATE background_tasks
SET status = 'Processing', attempts = attempts + 1, started_at = $2
WHERE id = $1 AND status = 'Queued'
RETURNING ` + taskColumns + `
`

type ClaimTaskParams struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// ClaimTask moves a Queued task to Processing in one statement. It returns
// sql.ErrNoRows when the task was cancelled or claimed by someone else.
func (q *Queries) ClaimTask(ctx context.Context, arg ClaimTaskParams) (BackgroundTask, error) {
	row := q.db.QueryRowContext(ctx, claimTask, arg.ID, arg.StartedAt)
	return scanTask(row)
}

const completeTask = `-- name: CompleteTask :exec
UPDATE background_tasks
SET status = 'Completed', completed_at = $2, error_message = NULL
WHERE id = $1 AND status = 'Processing'
`

type CompleteTaskParams struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (q *Queries) CompleteTask(ctx context.Context, arg CompleteTaskParams) error {
	_, err := q.db.ExecContext(ctx, completeTask, arg.ID, arg.CompletedAt)
	return err
}

const countQueuedTasks = `-- name: CountQueuedTasks :one
SELECT count(*) FROM background_tasks WHERE status = 'Queued'
`

func (q *Queries) CountQueuedTasks(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countQueuedTasks)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countTasksByStatus = `-- name: CountTasksByStatus :many
SELECT status, count(*) AS count
FROM background_tasks
GROUP BY status
ORDER BY status
`

type CountTasksByStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountTasksByStatus(ctx context.Context) ([]CountTasksByStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countTasksByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountTasksByStatusRow{}
	for rows.Next() {
		var i CountTasksByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const enqueueTask = `-- name: EnqueueTask :one
INSERT INTO background_tasks (id, task_name, task_data, status, created_at, scheduled_at, max_attempts)
VALUES ($1, $2, $3::jsonb, 'Queued', $4, $5, $6)
RETURNING ` + taskColumns + `
`

type EnqueueTaskParams struct {
	ID          string          `json:"id"`
	TaskName    string          `json:"task_name"`
	TaskData    json.RawMessage `json:"task_data"`
	CreatedAt   time.Time       `json:"created_at"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	MaxAttempts int32           `json:"max_attempts"`
}

func (q *Queries) EnqueueTask(ctx context.Context, arg EnqueueTaskParams) (BackgroundTask, error) {
	row := q.db.QueryRowContext(ctx, enqueueTask,
		arg.ID,
		arg.TaskName,
		string(arg.TaskData),
		arg.CreatedAt,
		arg.ScheduledAt,
		arg.MaxAttempts,
	)
	return scanTask(row)
}

const failTask = `-- name: FailTask :exec
UPDATE background_tasks
SET status = 'Failed', completed_at = $2, error_message = $3
WHERE id = $1 AND status = 'Processing'
`

type FailTaskParams struct {
	ID           string         `json:"id"`
	CompletedAt  time.Time      `json:"completed_at"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (q *Queries) FailTask(ctx context.Context, arg FailTaskParams) error {
	_, err := q.db.ExecContext(ctx, failTask, arg.ID, arg.CompletedAt, arg.ErrorMessage)
	return err
}

const getTask = `-- name: GetTask :one
SELECT ` + taskColumns + `
FROM background_tasks
WHERE id = $1
`

func (q *Queries) GetTask(ctx context.Context, id string) (BackgroundTask, error) {
	row := q.db.QueryRowContext(ctx, getTask, id)
	return scanTask(row)
}

const isTaskQueued = `-- name: IsTaskQueued :one
SELECT EXISTS (SELECT 1 FROM background_tasks WHERE id = $1 AND status = 'Queued')
`

func (q *Queries) IsTaskQueued(ctx context.Context, id string) (bool, error) {
	row := q.db.QueryRowContext(ctx, isTaskQueued, id)
	var queued bool
	err := row.Scan(&queued)
	return queued, err
}

const listDueTaskIDs = `-- name: ListDueTaskIDs :many
SELECT id
FROM background_tasks
WHERE status = 'Queued' AND scheduled_at <= $1
ORDER BY scheduled_at ASC, created_at ASC
LIMIT $2
`

type ListDueTaskIDsParams struct {
	Now   time.Time `json:"now"`
	Limit int32     `json:"limit"`
}

func (q *Queries) ListDueTaskIDs(ctx context.Context, arg ListDueTaskIDsParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listDueTaskIDs, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTasks = `-- name: ListTasks :many
SELECT ` + taskColumns + `
FROM background_tasks
WHERE ($1::text IS NULL OR status = $1::text)
ORDER BY created_at DESC
LIMIT $2
`

type ListTasksParams struct {
	Status sql.NullString `json:"status"`
	Limit  int32          `json:"limit"`
}

func (q *Queries) ListTasks(ctx context.Context, arg ListTasksParams) ([]BackgroundTask, error) {
	rows, err := q.db.QueryContext(ctx, listTasks, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BackgroundTask{}
	for rows.Next() {
		i, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const recoverStaleTasks = `-- name: RecoverStaleTasks :execrows
UPDATE background_tasks
SET status = 'Queued', scheduled_at = $2
WHERE status = 'Processing' AND started_at < $1 AND attempts < max_attempts
`

type RecoverStaleTasksParams struct {
	StartedBefore time.Time `json:"started_before"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// RecoverStaleTasks requeues tasks left in Processing by a worker that
// stopped before finishing them. Tasks with no attempts left are handled by
// FailExhaustedStaleTasks instead.
func (q *Queries) RecoverStaleTasks(ctx context.Context, arg RecoverStaleTasksParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, recoverStaleTasks, arg.StartedBefore, arg.ScheduledAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const failExhaustedStaleTasks = `-- name: FailExhaustedStaleTasks :execrows
UPDATE background_tasks
SET status = 'Failed', completed_at = $2, error_message = $3
WHERE status = 'Processing' AND started_at < $1 AND attempts >= max_attempts
`

type FailExhaustedStaleTasksParams struct {
	StartedBefore time.Time      `json:"started_before"`
	CompletedAt   time.Time      `json:"completed_at"`
	ErrorMessage  sql.NullString `json:"error_message"`
}

// FailExhaustedStaleTasks fails stale Processing tasks whose last attempt was
// interrupted, so they are never run more than max_attempts times.
func (q *Queries) FailExhaustedStaleTasks(ctx context.Context, arg FailExhaustedStaleTasksParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, failExhaustedStaleTasks, arg.StartedBefore, arg.CompletedAt, arg.ErrorMessage)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const retryTask = `-- name: RetryTask :exec
UPDATE background_tasks
SET status = 'Queued', scheduled_at = $2, error_message = $3
WHERE id = $1 AND status = 'Processing'
`

type RetryTaskParams struct {
	ID           string         `json:"id"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (q *Queries) RetryTask(ctx context.Context, arg RetryTaskParams) error {
	_, err := q.db.ExecContext(ctx, retryTask, arg.ID, arg.ScheduledAt, arg.ErrorMessage)
	return err
}
