// Package store owns the single database connection shared by every stage of
// a run and hides the differences between the SQLite and Postgres backends
// behind a small namespace-oriented Dialect.
//
// A namespace isolates one archive snapshot:
//   - SQLite: a database file <data_dir>/<ns>.db ATTACHed under the name ns
//   - Postgres: a schema named ns
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rulediff/internal/config"
	"rulediff/internal/logging"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MainDBName is the SQLite file that holds the connection's main schema.
const MainDBName = "rulediff.db"

// Store wraps the shared connection and its dialect.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// Open connects to the backend selected by cfg.
func Open(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	logger = logging.For(logger, logging.CategoryStore)
	timer := logging.StartTimer(logger, "store.Open")
	defer timer.Stop()

	switch {
	case cfg.IsSQLite():
		return openSQLite(cfg, logger)
	case cfg.Driver == config.DriverPostgres:
		return openPostgres(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openSQLite(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", zap.String("dir", cfg.DataDir), zap.Error(err))
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(cfg.DataDir, MainDBName)
	db, err := sql.Open(cfg.Driver, path)
	if err != nil {
		logger.Error("failed to open database", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ATTACH is per connection; every namespace must live on the one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}

	logger.Info("opened sqlite store", zap.String("driver", cfg.Driver), zap.String("path", path))
	return New(db, NewSQLiteDialect(cfg.DataDir), logger), nil
}

func openPostgres(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection reused across all pairs and stages.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logger.Info("opened postgres store")
	return New(db, NewPostgresDialect(), logger), nil
}

// New wraps an already-open connection.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, logger: logger}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the backend dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Qualify returns the namespace-qualified, quoted table name.
func (s *Store) Qualify(ns, table string) string {
	return s.dialect.Qualify(ns, table)
}

// TableExists reports whether table exists inside namespace ns. It never
// creates the namespace as a side effect.
func (s *Store) TableExists(ctx context.Context, ns, table string) (bool, error) {
	exists, err := s.dialect.TableExists(ctx, s.db, ns, table)
	if err != nil {
		return false, fmt.Errorf("failed to check %s.%s: %w", ns, table, err)
	}
	return exists, nil
}

// ResetNamespace drops ns if it exists and recreates it empty.
func (s *Store) ResetNamespace(ctx context.Context, ns string) error {
	s.logger.Debug("resetting namespace", zap.String("ns", ns))
	if err := s.dialect.ResetNamespace(ctx, s.db, ns); err != nil {
		return fmt.Errorf("failed to reset namespace %s: %w", ns, err)
	}
	return nil
}

// CreateTable creates t inside ns.
func (s *Store) CreateTable(ctx context.Context, tx *sql.Tx, ns string, t Table) error {
	if _, err := tx.ExecContext(ctx, s.dialect.CreateTableSQL(ns, t)); err != nil {
		return fmt.Errorf("failed to create %s.%s: %w", ns, t.Name, err)
	}
	return nil
}

// CreateIndex indexes table.column inside ns.
func (s *Store) CreateIndex(ctx context.Context, tx *sql.Tx, ns, table, column string) error {
	if _, err := tx.ExecContext(ctx, s.dialect.CreateIndexSQL(ns, table, column)); err != nil {
		return fmt.Errorf("failed to index %s.%s(%s): %w", ns, table, column, err)
	}
	return nil
}

// Analyze refreshes planner statistics for table.
func (s *Store) Analyze(ctx context.Context, tx *sql.Tx, ns, table string) error {
	if _, err := tx.ExecContext(ctx, s.dialect.AnalyzeSQL(ns, table)); err != nil {
		return fmt.Errorf("failed to analyze %s.%s: %w", ns, table, err)
	}
	return nil
}

// slowCopy is the bulk load duration logged as a warning.
const slowCopy = 30 * time.Second

// CopyIn bulk-loads rows into ns.table within tx. Each row holds one value per column.
func (s *Store) CopyIn(ctx context.Context, tx *sql.Tx, ns, table string, columns []string, rows [][]any) error {
	_, err := s.CopyFrom(ctx, tx, ns, table, columns, Rows(rows))
	return err
}

// CopyFrom bulk-loads the rows src produces into ns.table within tx, without
// holding them all in memory, and returns how many were loaded.
func (s *Store) CopyFrom(ctx context.Context, tx *sql.Tx, ns, table string, columns []string, src RowSource) (int, error) {
	timer := logging.StartTimer(s.logger.With(zap.String("ns", ns), zap.String("table", table)), "store.CopyFrom")
	defer timer.StopWithThreshold(slowCopy)

	n, err := s.dialect.CopyFrom(ctx, tx, ns, table, columns, src)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s.%s: %w", ns, table, err)
	}
	s.logger.Debug("bulk load complete", zap.String("ns", ns), zap.String("table", table), zap.Int("rows", n))
	return n, nil
}

// Count returns the row count of ns.table.
func (s *Store) Count(ctx context.Context, ns, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.Qualify(ns, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s.%s: %w", ns, table, err)
	}
	return n, nil
}
