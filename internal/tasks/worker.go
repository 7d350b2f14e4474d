package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/observability"
)

// Engine runs one validated query to completion.
type Engine interface {
	Execute(ctx context.Context, validatedSQL string) executor.Result
}

type WorkerConfig struct {
	ConsumerID   string
	LeaseSeconds int
	PollInterval time.Duration
}

// Worker drains the task queue. A backend error inside the executor is still
// a SUCCESS carrying an {error} result; FAILURE is reserved for faults of
// the worker itself.
type Worker struct {
	Store  Store
	Engine Engine
	Config WorkerConfig
	Logger *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	w.ensureDefaults()

	ticker := time.NewTicker(w.Config.PollInterval)
	defer ticker.Stop()

	for {
		requeued, err := w.Store.RequeueExpired(ctx)
		if err != nil {
			if w.Logger != nil {
				w.Logger.ErrorContext(ctx, "requeue expired tasks failed", slog.Any("error", err))
			}
		} else if requeued > 0 {
			observability.AddTasksRequeued(requeued)
			if w.Logger != nil {
				w.Logger.WarnContext(ctx, "requeued expired tasks", slog.Int("count", requeued))
			}
		}

		for {
			processed, err := w.ProcessOnce(ctx)
			if err != nil {
				if w.Logger != nil {
					w.Logger.ErrorContext(ctx, "task process cycle failed", slog.Any("error", err))
				}
				break
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOnce claims and finishes at most one task. Returns false when the
// queue is empty.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	w.ensureDefaults()

	task, claimed, err := w.Store.Claim(ctx, w.Config.ConsumerID, w.Config.LeaseSeconds)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	if !claimed {
		return false, nil
	}

	result := w.executeSafely(ctx, task)
	if err := w.Store.Complete(ctx, task.ID, result); err != nil {
		if failErr := w.Store.Fail(ctx, task.ID, "result could not be recorded"); failErr != nil {
			return true, fmt.Errorf("complete task %s: %w (fail also errored: %s)", task.ID, err, failErr)
		}
		observability.IncrementTaskFinished(string(StateFailure))
		return true, fmt.Errorf("complete task %s: %w", task.ID, err)
	}

	observability.IncrementTaskFinished(string(StateSuccess))
	if w.Logger != nil {
		w.Logger.InfoContext(ctx, "task finished",
			slog.String("task_id", task.ID),
			slog.String("case_id", task.CaseID),
			slog.Bool("query_errored", result.Failed()),
		)
	}
	return true, nil
}

// executeSafely keeps a panicking driver from taking the worker down; the
// panic becomes an {error} result like any other backend fault.
func (w *Worker) executeSafely(ctx context.Context, task Task) (result executor.Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = executor.Result{Err: fmt.Sprintf("query failed: %v", recovered)}
		}
	}()
	return w.Engine.Execute(ctx, task.SQL)
}

func (w *Worker) ensureDefaults() {
	if w.Config.ConsumerID == "" {
		w.Config.ConsumerID = "sqlhunt-worker"
	}
	if w.Config.LeaseSeconds <= 0 {
		w.Config.LeaseSeconds = 30
	}
	if w.Config.PollInterval <= 0 {
		w.Config.PollInterval = 250 * time.Millisecond
	}
}
