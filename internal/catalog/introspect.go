package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// HelpFunc supplies optional learner-facing help text per column.
type HelpFunc func(table, column string) string

// Introspector reads table metadata out of information_schema. Both backends
// expose the same views; only the bind-parameter style differs.
type Introspector struct {
	db     *sql.DB
	driver string
	help   HelpFunc
}

func NewIntrospector(db *sql.DB, driver string, help HelpFunc) *Introspector {
	if help == nil {
		help = func(string, string) string { return "" }
	}
	return &Introspector{db: db, driver: driver, help: help}
}

const columnsQueryTemplate = `
SELECT
    c.column_name,
    c.data_type,
    EXISTS (
        SELECT 1
        FROM information_schema.table_constraints AS tc
        JOIN information_schema.key_column_usage AS kcu
          ON kcu.constraint_name = tc.constraint_name
         AND kcu.table_name = tc.table_name
        WHERE tc.table_name = c.table_name
          AND tc.constraint_type = 'PRIMARY KEY'
          AND kcu.column_name = c.column_name
    ) AS is_primary,
    EXISTS (
        SELECT 1
        FROM information_schema.table_constraints AS tc
        JOIN information_schema.key_column_usage AS kcu
          ON kcu.constraint_name = tc.constraint_name
         AND kcu.table_name = tc.table_name
        WHERE tc.table_name = c.table_name
          AND tc.constraint_type = 'FOREIGN KEY'
          AND kcu.column_name = c.column_name
    ) AS is_foreign
FROM information_schema.columns AS c
WHERE c.table_name = %s
ORDER BY c.ordinal_position ASC`

const foreignKeysQueryTemplate = `
SELECT kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints AS tc
JOIN information_schema.key_column_usage AS kcu
  ON kcu.constraint_name = tc.constraint_name
JOIN information_schema.constraint_column_usage AS ccu
  ON ccu.constraint_name = tc.constraint_name
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_name = %s
ORDER BY kcu.column_name ASC`

// DescribeTable returns the columns and outgoing foreign keys of one table.
func (i *Introspector) DescribeTable(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{TableName: table, Columns: []Column{}, ForeignKeys: []ForeignKey{}}

	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(columnsQueryTemplate, i.placeholder(1)), table)
	if err != nil {
		return TableSchema{}, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.Type, &column.IsPrimary, &column.IsForeign); err != nil {
			return TableSchema{}, fmt.Errorf("scan column row: %w", err)
		}
		column.Type = strings.ToLower(column.Type)
		column.HelpText = i.help(table, column.Name)
		schema.Columns = append(schema.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return TableSchema{}, fmt.Errorf("iterate column rows: %w", err)
	}

	fkRows, err := i.db.QueryContext(ctx, fmt.Sprintf(foreignKeysQueryTemplate, i.placeholder(1)), table)
	if err != nil {
		return TableSchema{}, fmt.Errorf("query foreign keys: %w", err)
	}
	defer func() { _ = fkRows.Close() }()

	for fkRows.Next() {
		var fk ForeignKey
		if err := fkRows.Scan(&fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return TableSchema{}, fmt.Errorf("scan foreign key row: %w", err)
		}
		schema.ForeignKeys = append(schema.ForeignKeys, fk)
	}
	if err := fkRows.Err(); err != nil {
		return TableSchema{}, fmt.Errorf("iterate foreign key rows: %w", err)
	}

	return schema, nil
}

func (i *Introspector) placeholder(n int) string {
	if i.driver == "duckdb" {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}
