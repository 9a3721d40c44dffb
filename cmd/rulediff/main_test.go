package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rulediff/internal/archive"
	"rulediff/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixtureDir = "../../internal/archive/testdata/rules_archive"

// setup points the globals at a scratch workspace and the archive fixtures.
func setup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	cfg.Archive.Dir = fixtureDir
	cfg.Reports.Dir = filepath.Join(root, "reports")
	cfg.Storage.DataDir = filepath.Join(root, "db")
	return root
}

func TestRunCompare_WritesReport(t *testing.T) {
	setup(t)

	output := captureOutput(t, func() {
		err := runCompare(&cobra.Command{}, []string{"2023-07-01", "2023-02-01", "2023-01-20"})
		require.NoError(t, err)
	})

	assert.Contains(t, output, "resolve to the same archive (2023-01-01). Skipping")
	assert.Contains(t, output, "1 of 2 pairs compared, 1 skipped")
	report := filepath.Join(cfg.Reports.Dir, "2023-01-01_2023-06-01.csv")
	assert.Contains(t, output, report+" (3 changes)")
	assert.FileExists(t, report)
}

func TestRunCompare_Arguments(t *testing.T) {
	setup(t)

	err := runCompare(&cobra.Command{}, []string{"2023-07-01"})
	assert.ErrorContains(t, err, "at least two dates")

	err = runCompare(&cobra.Command{}, []string{"2023-07-01", "July 4th"})
	assert.ErrorContains(t, err, "July 4th")
}

func TestRunCompare_MissingArchiveDir(t *testing.T) {
	root := setup(t)
	cfg.Archive.Dir = filepath.Join(root, "no-such-archive")

	var err error
	captureOutput(t, func() {
		err = runCompare(&cobra.Command{}, []string{"2023-02-01", "2023-07-01"})
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, archive.ErrArchiveDirNotFound))
}

func TestRunArchives(t *testing.T) {
	setup(t)

	output := captureOutput(t, func() {
		require.NoError(t, runArchives(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "4 archives from 2023-01-01 to 2023-09-01")
	assert.Contains(t, output, "2023-03-01  incomplete")
	assert.Contains(t, output, "2023-06-01  complete")

	output = captureOutput(t, func() {
		require.NoError(t, runArchives(&cobra.Command{}, []string{"2022-12-01", "2023-07-04"}))
	})
	assert.Contains(t, output, "2022-12-01 -> 2023-01-01")
	assert.Contains(t, output, "2023-07-04 -> 2023-06-01")
}

func TestRunArchives_ShowsLoadedSnapshots(t *testing.T) {
	setup(t)

	captureOutput(t, func() {
		require.NoError(t, runCompare(&cobra.Command{}, []string{"2023-02-01", "2023-07-01"}))
	})

	output := captureOutput(t, func() {
		require.NoError(t, runArchives(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "2023-01-01  complete    loaded, 4 rules")
	assert.Contains(t, output, "2023-06-01  complete    loaded, 4 rules")
	assert.Contains(t, output, "2023-09-01  complete    not loaded")
	assert.Contains(t, output, "2023-03-01  incomplete  not loaded")
}

func TestRunExplain(t *testing.T) {
	setup(t)

	output := captureOutput(t, func() {
		require.NoError(t, runExplain(&cobra.Command{}, []string{"BAR01-BKL01-ACC-1", "2023-02-01", "2023-07-01"}))
	})
	assert.Contains(t, output, "BAR01-BKL01-ACC-1: changed")
	assert.Contains(t, output, "[-[200101.1:3]-]{+[200199.1:4]+}")
}

func TestRunExplain_MissingFiles(t *testing.T) {
	setup(t)

	err := runExplain(&cobra.Command{}, []string{"BAR01-BKL01-ACC-1", "2023-03-15", "2023-07-01"})
	var missing *archive.MissingFilesError
	require.True(t, errors.As(err, &missing))
	assert.Len(t, missing.Missing, 1)
}

const annotated = `Valence,Sending Course,Old Description,New Description
POSITIVE,ACC 101,A 1 => B [2:3],A 1 => B [2:4]
NEGATIVE,ACC 101,A 2 => B [5:3],
Total,2
`

func TestRunValenceAndRequirements(t *testing.T) {
	root := setup(t)
	path := filepath.Join(root, "course-rules.csv")
	require.NoError(t, os.WriteFile(path, []byte(annotated), 0644))

	output := captureOutput(t, func() {
		require.NoError(t, runValence(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "POSITIVE")
	assert.Contains(t, output, "Changed")

	output = captureOutput(t, func() {
		require.NoError(t, runRequirements(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "POSITIVE+NEGATIVE: ACC 101")
	assert.Contains(t, output, "TOTAL COURSES: 1")

	err := runValence(&cobra.Command{}, []string{filepath.Join(root, "absent.csv")})
	assert.Error(t, err)
}

func TestRunGeneric499(t *testing.T) {
	root := setup(t)
	path := filepath.Join(root, "course-rules.csv")
	report := `Valence,Sending Course,Old Description,New Description
POSITIVE,HIS 101,A 1 => LAE 499 [1:3],A 1 => HIS 499 [2:3]
NEGATIVE,MAT 101,A 2 => NLA 499 [3:3],A 2 => MAT 499 [4:4]
`
	require.NoError(t, os.WriteFile(path, []byte(report), 0644))

	output := captureOutput(t, func() {
		require.NoError(t, runGeneric499(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "Discipline(s)")
	assert.Contains(t, output, "HIS")
	assert.Contains(t, output, "MAT")
}

func TestRunConfig(t *testing.T) {
	root := setup(t)
	t.Setenv("RULEDIFF_REPORTS_DIR", "")
	t.Cleanup(func() { configPath, writeConfig = config.DefaultFileName, false })

	output := captureOutput(t, func() {
		require.NoError(t, runConfig(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "dir: "+fixtureDir)

	configPath = filepath.Join(root, "conf", "rulediff.yaml")
	writeConfig = true
	output = captureOutput(t, func() {
		require.NoError(t, runConfig(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Wrote "+configPath)

	saved, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Reports.Dir, saved.Reports.Dir)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	for _, key := range []string{"RULEDIFF_ARCHIVE_DIR", "RULEDIFF_REPORTS_DIR", "RULEDIFF_DB_DRIVER",
		"RULEDIFF_DATABASE_URL", "DATABASE_URL", "RULEDIFF_DATA_DIR"} {
		t.Setenv(key, "")
	}
	t.Cleanup(func() {
		configPath, archiveDir, reportsDir, driver, dsn = config.DefaultFileName, "", "", "", ""
	})

	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	archiveDir = "/srv/archive"
	reportsDir = "out"
	driver = config.DriverPostgres
	dsn = "postgres://localhost/cuny_curriculum"

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/srv/archive", c.Archive.Dir)
	assert.Equal(t, "out", c.Reports.Dir)
	assert.Equal(t, config.DriverPostgres, c.Storage.Driver)
	assert.Equal(t, "postgres://localhost/cuny_curriculum", c.Storage.DSN)
}

func TestRootCommand_NoArgsShowsHelp(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{Use: "rulediff", RunE: rootCmd.RunE}
	cmd.SetOut(&buf)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "rulediff")
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- strings.TrimSpace(buf.String())
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
