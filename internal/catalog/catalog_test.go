package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

type fakeTableSource struct {
	tables map[string][]string
}

func (f *fakeTableSource) AllowedTables(_ context.Context, caseID string) ([]string, error) {
	return f.tables[caseID], nil
}

func TestAllowedTablesEmptyCaseFails(t *testing.T) {
	svc := New(&fakeTableSource{tables: map[string][]string{"bare-case": {}}}, nil)

	_, err := svc.AllowedTables(context.Background(), "bare-case")
	if !errors.Is(err, ErrNoTables) {
		t.Fatalf("error = %v, want %v", err, ErrNoTables)
	}
}

func TestAllowedTables(t *testing.T) {
	svc := New(&fakeTableSource{tables: map[string][]string{
		"vanished-witness": {"alibi", "person"},
	}}, nil)

	tables, err := svc.AllowedTables(context.Background(), "vanished-witness")
	if err != nil {
		t.Fatalf("AllowedTables() error = %v", err)
	}
	if len(tables) != 2 || tables[0] != "alibi" {
		t.Fatalf("tables = %v", tables)
	}
}

func TestDescribeTable(t *testing.T) {
	db, mock := newSQLMock(t)
	help := func(table, column string) string {
		if table == "person" && column == "name" {
			return "Full legal name."
		}
		return ""
	}
	inspector := NewIntrospector(db, "pgx", help)

	mock.ExpectQuery(`SELECT\s+c\.column_name`).
		WithArgs("person").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_primary", "is_foreign"}).
			AddRow("id", "BIGINT", true, false).
			AddRow("name", "text", false, false).
			AddRow("case_id", "bigint", false, true))

	mock.ExpectQuery(`SELECT kcu\.column_name`).
		WithArgs("person").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "table_name", "column_name"}).
			AddRow("case_id", "cases", "id"))

	schema, err := inspector.DescribeTable(context.Background(), "person")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	if schema.TableName != "person" {
		t.Fatalf("TableName = %q", schema.TableName)
	}
	if len(schema.Columns) != 3 {
		t.Fatalf("column count = %d", len(schema.Columns))
	}
	if !schema.Columns[0].IsPrimary || schema.Columns[0].Type != "bigint" {
		t.Fatalf("id column = %+v", schema.Columns[0])
	}
	if schema.Columns[1].HelpText != "Full legal name." {
		t.Fatalf("name help = %q", schema.Columns[1].HelpText)
	}
	if !schema.Columns[2].IsForeign {
		t.Fatalf("case_id column = %+v", schema.Columns[2])
	}
	if len(schema.ForeignKeys) != 1 || schema.ForeignKeys[0].ToTable != "cases" {
		t.Fatalf("foreign keys = %+v", schema.ForeignKeys)
	}
	assertSQLMock(t, mock)
}

func TestSchemaUsesAllowList(t *testing.T) {
	db, mock := newSQLMock(t)
	inspector := NewIntrospector(db, "pgx", nil)
	svc := New(&fakeTableSource{tables: map[string][]string{
		"vanished-witness": {"alibi"},
	}}, inspector)

	mock.ExpectQuery(`SELECT\s+c\.column_name`).
		WithArgs("alibi").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_primary", "is_foreign"}).
			AddRow("id", "bigint", true, false))
	mock.ExpectQuery(`SELECT kcu\.column_name`).
		WithArgs("alibi").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "table_name", "column_name"}))

	schemas, err := svc.Schema(context.Background(), "vanished-witness")
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if len(schemas) != 1 || schemas[0].TableName != "alibi" {
		t.Fatalf("schemas = %+v", schemas)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
