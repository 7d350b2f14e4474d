package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/tasks"
)

// Store persists the task queue in Postgres. Claiming uses
// FOR UPDATE SKIP LOCKED so concurrent workers never double-run a task.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

func (s *Store) Enqueue(ctx context.Context, task tasks.Task) error {
	query := `
INSERT INTO sql_task (task_id, user_id, case_id, query_sql, state)
VALUES ($1, $2, $3, $4, 'pending')`

	if _, err := s.db.ExecContext(ctx, query, task.ID, task.UserID, task.CaseID, task.SQL); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

func (s *Store) Claim(ctx context.Context, consumerID string, leaseSeconds int) (tasks.Task, bool, error) {
	if leaseSeconds <= 0 {
		leaseSeconds = 30
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return tasks.Task{}, false, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	selectionQuery := `
SELECT task_id, user_id, case_id, query_sql, created_at
FROM sql_task
WHERE state = 'pending' AND (lease_until IS NULL OR lease_until <= NOW())
ORDER BY created_at ASC
FOR UPDATE SKIP LOCKED
LIMIT 1`

	var task tasks.Task
	if err := tx.QueryRowContext(ctx, selectionQuery).Scan(
		&task.ID,
		&task.UserID,
		&task.CaseID,
		&task.SQL,
		&task.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := tx.Commit(); err != nil {
				return tasks.Task{}, false, fmt.Errorf("commit empty claim tx: %w", err)
			}
			return tasks.Task{}, false, nil
		}
		return tasks.Task{}, false, fmt.Errorf("select claim candidate: %w", err)
	}

	leaseUntil := s.clock().UTC().Add(time.Duration(leaseSeconds) * time.Second)
	if _, err := tx.ExecContext(ctx, `
UPDATE sql_task
SET state = 'running', lease_owner = $2, lease_until = $3, updated_at = NOW()
WHERE task_id = $1`, task.ID, consumerID, leaseUntil); err != nil {
		return tasks.Task{}, false, fmt.Errorf("mark task running: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return tasks.Task{}, false, fmt.Errorf("commit claim tx: %w", err)
	}
	task.State = tasks.StateRunning
	return task, true, nil
}

func (s *Store) Complete(ctx context.Context, taskID string, result executor.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE sql_task
SET state = 'success', result_json = $2, lease_owner = NULL, lease_until = NULL, updated_at = NOW()
WHERE task_id = $1 AND state = 'running'`, taskID, string(payload))
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete task rows affected: %w", err)
	}
	if rows == 0 {
		return tasks.ErrNotRunning
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, taskID string, message string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE sql_task
SET state = 'failure', error_text = $2, lease_owner = NULL, lease_until = NULL, updated_at = NOW()
WHERE task_id = $1 AND state = 'running'`, taskID, message)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail task rows affected: %w", err)
	}
	if rows == 0 {
		return tasks.ErrNotRunning
	}
	return nil
}

func (s *Store) Get(ctx context.Context, taskID string) (tasks.Task, error) {
	query := `
SELECT task_id, user_id, case_id, query_sql, state, result_json, error_text, created_at, updated_at
FROM sql_task
WHERE task_id = $1`

	var task tasks.Task
	var state string
	var resultJSON sql.NullString
	var errorText sql.NullString
	if err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.UserID,
		&task.CaseID,
		&task.SQL,
		&state,
		&resultJSON,
		&errorText,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tasks.Task{}, tasks.ErrNotFound
		}
		return tasks.Task{}, fmt.Errorf("get task: %w", err)
	}

	task.State = tasks.State(state)
	task.Error = errorText.String
	if resultJSON.Valid && resultJSON.String != "" {
		var result executor.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return tasks.Task{}, fmt.Errorf("decode task result: %w", err)
		}
		task.Result = &result
	}
	return task, nil
}

func (s *Store) RequeueExpired(ctx context.Context) (int, error) {
	query := `
WITH moved AS (
    UPDATE sql_task
    SET state = 'pending', lease_owner = NULL, lease_until = NULL, updated_at = NOW()
    WHERE state = 'running' AND lease_until IS NOT NULL AND lease_until < NOW()
    RETURNING task_id
)
SELECT COUNT(*) FROM moved`

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("requeue expired tasks: %w", err)
	}
	return count, nil
}

var _ tasks.Store = (*Store)(nil)
