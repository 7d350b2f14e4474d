package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sqlhunt/sqlhunt/internal/cases"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping app db: %w", err)
	}
	return nil
}

func (s *Store) ListCases(ctx context.Context) ([]cases.Case, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT case_id, title, short_description, description, required_xp, reward_xp, answer, created_at
FROM game_case
ORDER BY required_xp ASC, case_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]cases.Case, 0)
	for rows.Next() {
		var gameCase cases.Case
		if err := rows.Scan(
			&gameCase.ID,
			&gameCase.Title,
			&gameCase.ShortDescription,
			&gameCase.Description,
			&gameCase.RequiredXP,
			&gameCase.RewardXP,
			&gameCase.Answer,
			&gameCase.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan case row: %w", err)
		}
		result = append(result, gameCase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case rows: %w", err)
	}
	return result, nil
}

func (s *Store) GetCase(ctx context.Context, caseID string) (cases.Case, error) {
	query := `
SELECT case_id, title, short_description, description, required_xp, reward_xp, answer, created_at
FROM game_case
WHERE case_id = $1`

	var gameCase cases.Case
	if err := s.db.QueryRowContext(ctx, query, caseID).Scan(
		&gameCase.ID,
		&gameCase.Title,
		&gameCase.ShortDescription,
		&gameCase.Description,
		&gameCase.RequiredXP,
		&gameCase.RewardXP,
		&gameCase.Answer,
		&gameCase.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cases.Case{}, cases.ErrNotFound
		}
		return cases.Case{}, fmt.Errorf("get case: %w", err)
	}
	return gameCase, nil
}

func (s *Store) AllowedTables(ctx context.Context, caseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_name
FROM case_available_table
WHERE case_id = $1
ORDER BY table_name ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list allowed tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan allowed table row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowed table rows: %w", err)
	}
	return tables, nil
}

func (s *Store) GetProgress(ctx context.Context, userID, caseID string) (cases.Progress, error) {
	query := `
SELECT user_id, case_id, completed, started_at, completed_at
FROM user_progress
WHERE user_id = $1 AND case_id = $2`

	var progress cases.Progress
	if err := s.db.QueryRowContext(ctx, query, userID, caseID).Scan(
		&progress.UserID,
		&progress.CaseID,
		&progress.Completed,
		&progress.StartedAt,
		&progress.CompletedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cases.Progress{}, cases.ErrNotFound
		}
		return cases.Progress{}, fmt.Errorf("get progress: %w", err)
	}
	return progress, nil
}

func (s *Store) StartProgress(ctx context.Context, userID, caseID string) (cases.Progress, error) {
	query := `
INSERT INTO user_progress (user_id, case_id, completed, started_at)
VALUES ($1, $2, FALSE, NOW())
ON CONFLICT (user_id, case_id)
DO UPDATE SET user_id = user_progress.user_id
RETURNING user_id, case_id, completed, started_at, completed_at`

	var progress cases.Progress
	if err := s.db.QueryRowContext(ctx, query, userID, caseID).Scan(
		&progress.UserID,
		&progress.CaseID,
		&progress.Completed,
		&progress.StartedAt,
		&progress.CompletedAt,
	); err != nil {
		return cases.Progress{}, fmt.Errorf("start progress: %w", err)
	}
	return progress, nil
}

func (s *Store) CompleteProgress(ctx context.Context, userID, caseID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
UPDATE user_progress
SET completed = TRUE, completed_at = NOW()
WHERE user_id = $1 AND case_id = $2 AND completed = FALSE`, userID, caseID)
	if err != nil {
		return false, fmt.Errorf("complete progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete progress rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *Store) GetXP(ctx context.Context, userID string) (int, error) {
	var xp int
	if err := s.db.QueryRowContext(ctx, `
SELECT xp
FROM learner
WHERE user_id = $1`, userID).Scan(&xp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get xp: %w", err)
	}
	return xp, nil
}

func (s *Store) AddXP(ctx context.Context, userID string, delta int) (int, error) {
	query := `
INSERT INTO learner (user_id, xp)
VALUES ($1, $2)
ON CONFLICT (user_id)
DO UPDATE SET xp = learner.xp + EXCLUDED.xp
RETURNING xp`

	var xp int
	if err := s.db.QueryRowContext(ctx, query, userID, delta).Scan(&xp); err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return xp, nil
}

func (s *Store) UpsertCase(ctx context.Context, def cases.Definition) error {
	query := `
INSERT INTO game_case (case_id, title, short_description, description, required_xp, reward_xp, answer)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (case_id)
DO UPDATE SET
    title = EXCLUDED.title,
    short_description = EXCLUDED.short_description,
    description = EXCLUDED.description,
    required_xp = EXCLUDED.required_xp,
    reward_xp = EXCLUDED.reward_xp,
    answer = EXCLUDED.answer`

	if _, err := s.db.ExecContext(ctx, query,
		def.ID,
		def.Title,
		def.ShortDescription,
		def.Description,
		def.RequiredXP,
		def.RewardXP,
		def.Answer,
	); err != nil {
		return fmt.Errorf("upsert case: %w", err)
	}
	return nil
}

func (s *Store) ReplaceAvailableTables(ctx context.Context, caseID string, tables []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tables tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM case_available_table
WHERE case_id = $1`, caseID); err != nil {
		return fmt.Errorf("clear allowed tables: %w", err)
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO case_available_table (case_id, table_name)
VALUES ($1, $2)`, caseID, table); err != nil {
			return fmt.Errorf("insert allowed table %q: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tables tx: %w", err)
	}
	return nil
}

var _ cases.Store = (*Store)(nil)
