package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rulediff/internal/config"
	"rulediff/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	archiveDir string
	reportsDir string
	driver     string
	dsn        string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulediff DATE DATE [DATE...]",
	Short: "Report how transfer rules changed between archive snapshots",
	Long: `rulediff compares dated snapshots of the transfer-rule archive.

Each date is resolved to the latest archive on or before it. The sorted dates
are compared pairwise (first with second, second with third, ...) and each
pair that resolves to two different archives produces a CSV report of the
rules whose descriptions changed:

  reports/<first>_<second>.csv

Snapshots are loaded into storage once and reused by later runs.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
			zap.String("config", configPath),
			zap.String("archive_dir", cfg.Archive.Dir),
			zap.String("reports_dir", cfg.Reports.Dir),
			zap.String("driver", cfg.Storage.Driver))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runCompare(cmd, args)
	},
}

// loadConfig reads the config file and applies flag overrides on top of it.
func loadConfig() (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if archiveDir != "" {
		c.Archive.Dir = archiveDir
	}
	if reportsDir != "" {
		c.Reports.Dir = reportsDir
	}
	if driver != "" {
		c.Storage.Driver = driver
	}
	if dsn != "" {
		c.Storage.DSN = dsn
	}
	if err := c.Logging.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Config file path")
	rootCmd.PersistentFlags().StringVar(&archiveDir, "archive-dir", "", "Rules archive directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&reportsDir, "reports-dir", "", "Report output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Storage driver: sqlite, sqlite3 or postgres (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres connection string (overrides config)")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(archivesCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(valenceCmd)
	rootCmd.AddCommand(requirementsCmd)
	rootCmd.AddCommand(generic499Cmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// commandContext returns the command's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
