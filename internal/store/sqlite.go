package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SQLiteDialect maps each namespace to its own database file, attached to the
// shared connection on first use.
type SQLiteDialect struct {
	dataDir  string
	mu       sync.Mutex
	attached map[string]bool
}

// NewSQLiteDialect stores namespace files under dataDir.
func NewSQLiteDialect(dataDir string) *SQLiteDialect {
	return &SQLiteDialect{
		dataDir:  dataDir,
		attached: make(map[string]bool),
	}
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d *SQLiteDialect) Qualify(ns, table string) string {
	return d.Quote(ns) + "." + d.Quote(table)
}

func (d *SQLiteDialect) Placeholder(int) string { return "?" }

// NamespacePath returns the database file backing ns.
func (d *SQLiteDialect) NamespacePath(ns string) string {
	return filepath.Join(d.dataDir, ns+".db")
}

func (d *SQLiteDialect) attach(ctx context.Context, db *sql.DB, ns string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.attached[ns] {
		return nil
	}
	if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS "+d.Quote(ns), d.NamespacePath(ns)); err != nil {
		return fmt.Errorf("attach %s: %w", ns, err)
	}
	d.attached[ns] = true
	return nil
}

func (d *SQLiteDialect) detach(ctx context.Context, db *sql.DB, ns string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached[ns] {
		return nil
	}
	if _, err := db.ExecContext(ctx, "DETACH DATABASE "+d.Quote(ns)); err != nil {
		return fmt.Errorf("detach %s: %w", ns, err)
	}
	delete(d.attached, ns)
	return nil
}

func (d *SQLiteDialect) isAttached(ns string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached[ns]
}

// TableExists checks ns.sqlite_master. A namespace whose file does not exist
// is reported as empty without attaching (ATTACH would create the file).
func (d *SQLiteDialect) TableExists(ctx context.Context, db *sql.DB, ns, table string) (bool, error) {
	if !d.isAttached(ns) {
		if _, err := os.Stat(d.NamespacePath(ns)); errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err := d.attach(ctx, db, ns); err != nil {
			return false, err
		}
	}

	var n int
	query := "SELECT COUNT(*) FROM " + d.Quote(ns) + ".sqlite_master WHERE type = 'table' AND name = ?"
	if err := db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetNamespace detaches ns, deletes its file and attaches a fresh one.
func (d *SQLiteDialect) ResetNamespace(ctx context.Context, db *sql.DB, ns string) error {
	if err := d.detach(ctx, db, ns); err != nil {
		return err
	}

	path := d.NamespacePath(ns)
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path+suffix, err)
		}
	}
	if err := os.MkdirAll(d.dataDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", d.dataDir, err)
	}
	return d.attach(ctx, db, ns)
}

func (d *SQLiteDialect) CreateTableSQL(ns string, t Table) string {
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", d.Qualify(ns, t.Name), columnDefs(d, t))
}

// CreateIndexSQL puts the schema on the index name; SQLite resolves the table
// inside that same schema.
func (d *SQLiteDialect) CreateIndexSQL(ns, table, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		d.Qualify(ns, indexName(table, column)), d.Quote(table), d.Quote(column))
}

func (d *SQLiteDialect) AnalyzeSQL(ns, table string) string {
	return "ANALYZE " + d.Qualify(ns, table)
}

// CopyFrom inserts rows through one prepared statement inside tx.
func (d *SQLiteDialect) CopyFrom(ctx context.Context, tx *sql.Tx, ns, table string, columns []string, src RowSource) (int, error) {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Qualify(ns, table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

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
		return 0, err
	}
	return n, nil
}
