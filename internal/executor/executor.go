// Package executor runs validated queries against the investigations store
// and converts every backend failure into a structured result. Nothing in
// here propagates a raw backend error to the caller.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/observability"
)

// Engine executes a single validated SELECT with a bounded wall-clock
// budget. The row cap is already baked into the SQL text; the statement
// timeout at the store bounds what the deadline here cannot.
type Engine struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewEngine(db *sql.DB, queryTimeout time.Duration) *Engine {
	if queryTimeout <= 0 {
		queryTimeout = 15 * time.Second
	}
	return &Engine{db: db, queryTimeout: queryTimeout}
}

// Execute materializes columns and rows for the given SQL. Backend failures
// of any kind come back inside the Result, never as an error.
func (e *Engine) Execute(ctx context.Context, validatedSQL string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	started := time.Now()
	defer func() { observability.ObserveQueryDuration(time.Since(started)) }()

	rows, err := e.db.QueryContext(ctx, validatedSQL)
	if err != nil {
		return Result{Err: renderError(err)}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{Err: renderError(err)}
	}

	result := Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{Err: renderError(err)}
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return Result{Err: renderError(err)}
	}
	return result
}

// renderError is the single place backend error text passes through before
// it can reach a learner. Hardened deployments tighten the mapping here.
func renderError(err error) string {
	return fmt.Sprintf("query failed: %s", err.Error())
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC()
	default:
		return value
	}
}
