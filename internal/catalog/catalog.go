// Package catalog resolves the per-case table allow-list and describes the
// allowed tables from live database catalog metadata, so schema and code
// never drift apart.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTables is returned when a case exists but exposes zero tables.
var ErrNoTables = errors.New("catalog: case has no available tables")

type Column struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsPrimary bool   `json:"isPrimary"`
	IsForeign bool   `json:"isForeign"`
	HelpText  string `json:"helpText,omitempty"`
}

type ForeignKey struct {
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

type TableSchema struct {
	TableName   string       `json:"tableName"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
}

// TableSource lists the allow-listed table names for a case.
type TableSource interface {
	AllowedTables(ctx context.Context, caseID string) ([]string, error)
}

// Catalog joins the case allow-list with live schema introspection.
type Catalog struct {
	tables    TableSource
	inspector *Introspector
}

func New(tables TableSource, inspector *Introspector) *Catalog {
	return &Catalog{tables: tables, inspector: inspector}
}

// AllowedTables returns the case allow-list, or ErrNoTables when empty.
func (c *Catalog) AllowedTables(ctx context.Context, caseID string) ([]string, error) {
	tables, err := c.tables.AllowedTables(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

// Schema describes every allowed table of the case.
func (c *Catalog) Schema(ctx context.Context, caseID string) ([]TableSchema, error) {
	tables, err := c.AllowedTables(ctx, caseID)
	if err != nil {
		return nil, err
	}

	schemas := make([]TableSchema, 0, len(tables))
	for _, table := range tables {
		schema, err := c.inspector.DescribeTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("describe table %q: %w", table, err)
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}
