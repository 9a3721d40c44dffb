package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage drivers understood by internal/store.
const (
	DriverSQLite    = "sqlite"   // modernc.org/sqlite, pure Go
	DriverSQLite3   = "sqlite3"  // github.com/mattn/go-sqlite3, cgo
	DriverPostgres  = "postgres" // github.com/lib/pq
	DefaultFileName = "rulediff.yaml"
)

// Config holds all rulediff configuration.
type Config struct {
	// Archive snapshot location
	Archive ArchiveConfig `yaml:"archive"`

	// Change report output
	Reports ReportsConfig `yaml:"reports"`

	// Storage backend holding the loaded snapshots
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ArchiveConfig locates the dated rule archive files.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// ReportsConfig controls where change reports are written.
type ReportsConfig struct {
	Dir string `yaml:"dir"` // relative to the working directory unless absolute
}

// StorageConfig selects and configures the snapshot storage backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite, sqlite3, postgres

	// Postgres connection string (postgres driver only)
	DSN string `yaml:"dsn"`

	// Directory for the main SQLite database and one attached file per
	// snapshot namespace (sqlite drivers only)
	DataDir string `yaml:"data_dir"`
}

// IsSQLite reports whether the configured driver is one of the SQLite drivers.
func (s StorageConfig) IsSQLite() bool {
	return s.Driver == DriverSQLite || s.Driver == DriverSQLite3
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	archiveDir := filepath.Join("Projects", "cuny_curriculum", "rules_archive")
	if home, err := os.UserHomeDir(); err == nil {
		archiveDir = filepath.Join(home, archiveDir)
	}

	return &Config{
		Archive: ArchiveConfig{
			Dir: archiveDir,
		},
		Reports: ReportsConfig{
			Dir: "reports",
		},
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			DataDir: filepath.Join(".rulediff", "db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults plus environment when the file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Encode writes the configuration to w as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// Save writes the configuration to path, replacing any existing file whole.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("RULEDIFF_ARCHIVE_DIR"); dir != "" {
		c.Archive.Dir = dir
	}
	if dir := os.Getenv("RULEDIFF_REPORTS_DIR"); dir != "" {
		c.Reports.Dir = dir
	}
	if driver := os.Getenv("RULEDIFF_DB_DRIVER"); driver != "" {
		c.Storage.Driver = strings.ToLower(driver)
	}

	// Database URL, most specific first
	if dsn := os.Getenv("RULEDIFF_DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
	} else if dsn := os.Getenv("DATABASE_URL"); dsn != "" && c.Storage.DSN == "" {
		c.Storage.DSN = dsn
	}

	if dir := os.Getenv("RULEDIFF_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required")
	}
	if c.Reports.Dir == "" {
		return fmt.Errorf("reports.dir is required")
	}

	switch {
	case c.Storage.IsSQLite():
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for driver %q", c.Storage.Driver)
		}
	case c.Storage.Driver == DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q (or set RULEDIFF_DATABASE_URL)", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want sqlite, sqlite3 or postgres)", c.Storage.Driver)
	}

	if err := c.Logging.Validate(); err != nil {
		return err
	}

	return nil
}
