package worker

import (
	"context"
	"errors"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

// JobHandler executes one kind of background task.
type JobHandler interface {
	// Kind returns the task kind this handler processes.
	Kind() domain.TaskKind

	// Handle executes the task. The payload has already been decoded and
	// validated and is the concrete type for Kind. Return NewPermanentError
	// to fail the task without further retries.
	Handle(ctx context.Context, payload domain.TaskPayload) error
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err so the worker fails the task immediately.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err or anything it wraps is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
