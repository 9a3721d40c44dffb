package store

import (
	"context"
	"database/sql"
	"strings"
)

// Column is one column of a namespace table. Type is one of text, int, real, date.
type Column struct {
	Name string
	Type string
}

// Table describes a namespace table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey string // optional single-column primary key
	NotNull    []string
	Unlogged   bool // Postgres only: skip WAL for rebuildable raw data
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Dialect is the backend-specific half of namespace management.
type Dialect interface {
	// Name identifies the dialect in logs ("sqlite", "postgres").
	Name() string

	// Quote quotes a single identifier.
	Quote(ident string) string

	// Qualify returns the quoted ns.table reference.
	Qualify(ns, table string) string

	// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
	Placeholder(n int) string

	TableExists(ctx context.Context, db *sql.DB, ns, table string) (bool, error)
	ResetNamespace(ctx context.Context, db *sql.DB, ns string) error

	CreateTableSQL(ns string, t Table) string
	CreateIndexSQL(ns, table, column string) string
	AnalyzeSQL(ns, table string) string

	// CopyFrom bulk-loads every row src produces and returns the row count.
	CopyFrom(ctx context.Context, tx *sql.Tx, ns, table string, columns []string, src RowSource) (int, error)
}

// RowSource produces the rows of a bulk load by calling send once per row, in
// order. It must stop and return the error when send fails.
type RowSource func(send func(row []any) error) error

// Rows is a RowSource over rows already in memory.
func Rows(rows [][]any) RowSource {
	return func(send func([]any) error) error {
		for _, row := range rows {
			if err := send(row); err != nil {
				return err
			}
		}
		return nil
	}
}

// columnDefs renders the column list of a CREATE TABLE statement.
func columnDefs(d Dialect, t Table) string {
	notNull := make(map[string]bool, len(t.NotNull))
	for _, c := range t.NotNull {
		notNull[c] = true
	}

	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := d.Quote(c.Name) + " " + c.Type
		if c.Name == t.PrimaryKey {
			def += " PRIMARY KEY"
		} else if notNull[c.Name] {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return strings.Join(defs, ",\n\t")
}

// indexName is the conventional <table>_<column>_idx name.
func indexName(table, column string) string {
	return table + "_" + column + "_idx"
}
