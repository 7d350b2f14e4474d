package fixtures

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Loader materializes a dataset into the investigations database. The same
// code serves both backends; only the bind-parameter style differs.
type Loader struct {
	db     *sql.DB
	driver string
}

func NewLoader(db *sql.DB, driver string) *Loader {
	return &Loader{db: db, driver: driver}
}

// EnsureSchema creates the investigation tables when missing.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	for _, table := range Tables() {
		if _, err := l.db.ExecContext(ctx, ddl[table]); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

// LoadDataset replaces the dataset's own rows. Identifier ranges are
// disjoint per case, so reloading one case never touches another's data.
func (l *Loader) LoadDataset(ctx context.Context, ds Dataset) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	type tableRows struct {
		table string
		ids   []int64
		rows  [][]any
		cols  []string
	}

	batches := []tableRows{
		{table: "person", cols: []string{"id", "name", "age", "occupation", "address"}},
		{table: "cases", cols: []string{"id", "title", "location", "opened_on", "status"}},
		{table: "suspect", cols: []string{"id", "case_id", "person_id", "motive"}},
		{table: "alibi", cols: []string{"id", "case_id", "person_id", "claim", "verified"}},
		{table: "statement", cols: []string{"id", "case_id", "person_id", "given_on", "text"}},
		{table: "evidence", cols: []string{"id", "case_id", "item", "found_at", "belongs_to"}},
	}

	for _, p := range ds.Persons {
		batches[0].ids = append(batches[0].ids, p.ID)
		batches[0].rows = append(batches[0].rows, []any{p.ID, p.Name, p.Age, p.Occupation, p.Address})
	}
	for _, c := range ds.Cases {
		batches[1].ids = append(batches[1].ids, c.ID)
		batches[1].rows = append(batches[1].rows, []any{c.ID, c.Title, c.Location, c.OpenedOn, c.Status})
	}
	for _, s := range ds.Suspects {
		batches[2].ids = append(batches[2].ids, s.ID)
		batches[2].rows = append(batches[2].rows, []any{s.ID, s.CaseID, s.PersonID, s.Motive})
	}
	for _, a := range ds.Alibis {
		batches[3].ids = append(batches[3].ids, a.ID)
		batches[3].rows = append(batches[3].rows, []any{a.ID, a.CaseID, a.PersonID, a.Claim, a.Verified})
	}
	for _, s := range ds.Statements {
		batches[4].ids = append(batches[4].ids, s.ID)
		batches[4].rows = append(batches[4].rows, []any{s.ID, s.CaseID, s.PersonID, s.GivenOn, s.Text})
	}
	for _, e := range ds.Evidence {
		batches[5].ids = append(batches[5].ids, e.ID)
		batches[5].rows = append(batches[5].rows, []any{e.ID, e.CaseID, e.Item, e.FoundAt, e.BelongsTo})
	}

	// Children first so foreign keys never dangle mid-load.
	for i := len(batches) - 1; i >= 0; i-- {
		batch := batches[i]
		if len(batch.ids) == 0 {
			continue
		}
		args := make([]any, len(batch.ids))
		for j, id := range batch.ids {
			args[j] = id
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", batch.table, l.placeholders(len(args)))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s rows: %w", batch.table, err)
		}
	}

	for _, batch := range batches {
		if len(batch.rows) == 0 {
			continue
		}
		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			batch.table,
			strings.Join(batch.cols, ", "),
			l.placeholders(len(batch.cols)),
		)
		for _, row := range batch.rows {
			if _, err := tx.ExecContext(ctx, query, row...); err != nil {
				return fmt.Errorf("insert %s row: %w", batch.table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load tx: %w", err)
	}
	return nil
}

func (l *Loader) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if l.driver == "duckdb" {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("$%d", i+1)
		}
	}
	return strings.Join(parts, ", ")
}
