// Package tasks decouples query submission from execution: submit validates
// and enqueues, a worker pool drains the queue, poll reads task state by
// opaque id.
package tasks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/executor"
)

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

var (
	ErrNotFound = errors.New("tasks: task not found")
	// ErrNotRunning guards terminal-state immutability: only a running task
	// may be completed or failed.
	ErrNotRunning = errors.New("tasks: task is not running")
	// ErrDispatch marks an enqueue failure, distinct from validation errors.
	ErrDispatch = errors.New("tasks: enqueue failed")
)

// Task is one unit of asynchronous query work. SQL holds the validated text,
// never the raw submission.
type Task struct {
	ID        string
	UserID    string
	CaseID    string
	SQL       string
	State     State
	Result    *executor.Result
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store interface {
	Enqueue(ctx context.Context, task Task) error
	Claim(ctx context.Context, consumerID string, leaseSeconds int) (Task, bool, error)
	Complete(ctx context.Context, taskID string, result executor.Result) error
	Fail(ctx context.Context, taskID string, message string) error
	Get(ctx context.Context, taskID string) (Task, error)
	RequeueExpired(ctx context.Context) (int, error)
}

// NewTaskID returns 128 bits of hex. The id doubles as the bearer credential
// for reading results, so it must not be guessable.
func NewTaskID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
