package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/observability"
	"github.com/sqlhunt/sqlhunt/internal/sqlguard"
)

// Validator checks a raw submission against a case allow-list.
type Validator interface {
	Validate(rawSQL string, allowedTables []string) (string, error)
}

// TableSource resolves the allow-list for a case.
type TableSource interface {
	AllowedTables(ctx context.Context, caseID string) ([]string, error)
}

// Runner is the submit/poll surface. Validation runs before enqueue, so a
// rejected query never creates a task or consumes a worker slot.
type Runner struct {
	store     Store
	validator Validator
	tables    TableSource
	logger    *slog.Logger
}

func NewRunner(store Store, validator Validator, tables TableSource, logger *slog.Logger) *Runner {
	return &Runner{store: store, validator: validator, tables: tables, logger: logger}
}

// Submit validates rawSQL for the case and enqueues it, returning the task
// id. Validation failures surface as *sqlguard.ValidationError; enqueue
// failures wrap ErrDispatch.
func (r *Runner) Submit(ctx context.Context, userID, caseID, rawSQL string) (string, error) {
	allowed, err := r.tables.AllowedTables(ctx, caseID)
	if err != nil {
		return "", err
	}

	validated, err := r.validator.Validate(rawSQL, allowed)
	if err != nil {
		var validationErr *sqlguard.ValidationError
		if errors.As(err, &validationErr) {
			observability.IncrementQueryRejected(validationErr.Rule)
		}
		return "", err
	}
	observability.IncrementQueryValidated()

	taskID, err := NewTaskID()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDispatch, err)
	}

	now := time.Now().UTC()
	task := Task{
		ID:        taskID,
		UserID:    userID,
		CaseID:    caseID,
		SQL:       validated,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("%w: %s", ErrDispatch, err)
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "task enqueued",
			slog.String("task_id", taskID),
			slog.String("case_id", caseID),
			slog.String("user_id", userID),
		)
	}
	return taskID, nil
}

// Poll is a pure read of task state keyed by id.
func (r *Runner) Poll(ctx context.Context, taskID string) (Task, error) {
	return r.store.Get(ctx, taskID)
}
