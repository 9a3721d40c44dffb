package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lib/pq"
)

// PostgresDialect maps each namespace to a schema.
type PostgresDialect struct{}

// NewPostgresDialect returns the schema-per-namespace dialect.
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (d *PostgresDialect) Qualify(ns, table string) string {
	return d.Quote(ns) + "." + d.Quote(table)
}

func (d *PostgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (d *PostgresDialect) TableExists(ctx context.Context, db *sql.DB, ns, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1
			  AND table_name = $2
		)`, ns, table).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (d *PostgresDialect) ResetNamespace(ctx context.Context, db *sql.DB, ns string) error {
	if _, err := db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+d.Quote(ns)+" CASCADE"); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA "+d.Quote(ns)); err != nil {
		return err
	}
	return nil
}

func (d *PostgresDialect) CreateTableSQL(ns string, t Table) string {
	kind := "TABLE"
	if t.Unlogged {
		kind = "UNLOGGED TABLE"
	}
	return fmt.Sprintf("CREATE %s %s (\n\t%s\n)", kind, d.Qualify(ns, t.Name), columnDefs(d, t))
}

// CreateIndexSQL leaves the index name unqualified; Postgres places it in the table's schema.
func (d *PostgresDialect) CreateIndexSQL(ns, table, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		d.Quote(indexName(table, column)), d.Qualify(ns, table), d.Quote(column))
}

func (d *PostgresDialect) AnalyzeSQL(ns, table string) string {
	return "ANALYZE " + d.Qualify(ns, table)
}

// CopyFrom streams rows through COPY ... FROM STDIN.
func (d *PostgresDialect) CopyFrom(ctx context.Context, tx *sql.Tx, ns, table string, columns []string, src RowSource) (int, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(ns, table, columns...))
	if err != nil {
		return 0, err
	}

	n := 0
	err = src(func(row []any) error {
		n++
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values, want %d", n, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("row %d: %w", n, err)
		}
		return nil
	})
	if err != nil {
		stmt.Close()
		return 0, err
	}

	// An argument-less Exec flushes the buffered COPY data.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, err
	}
	return n, stmt.Close()
}
