package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Storage(t *testing.T) {
	t.Run("RULEDIFF_DATABASE_URL wins over DATABASE_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RULEDIFF_DATABASE_URL", "dbname=specific")
		t.Setenv("DATABASE_URL", "dbname=generic")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "dbname=specific", cfg.Storage.DSN)
	})

	t.Run("DATABASE_URL does not override a configured dsn", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "dbname=generic")

		cfg := &Config{Storage: StorageConfig{DSN: "dbname=configured"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "dbname=configured", cfg.Storage.DSN)
	})

	t.Run("DATABASE_URL fills an empty dsn", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "dbname=generic")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "dbname=generic", cfg.Storage.DSN)
	})

	t.Run("RULEDIFF_DB_DRIVER is lowercased", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RULEDIFF_DB_DRIVER", "Postgres")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
		assert.False(t, cfg.Storage.IsSQLite())
	})
}

func TestEnvOverrides_Paths(t *testing.T) {
	clearEnv(t)
	t.Setenv("RULEDIFF_ARCHIVE_DIR", "/srv/archive")
	t.Setenv("RULEDIFF_REPORTS_DIR", "/srv/reports")
	t.Setenv("RULEDIFF_DATA_DIR", "/srv/db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/srv/archive", cfg.Archive.Dir)
	assert.Equal(t, "/srv/reports", cfg.Reports.Dir)
	assert.Equal(t, "/srv/db", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.IsSQLite())
}
