package main

import (
	"fmt"
	"time"

	"rulediff/internal/archive"
	"rulediff/internal/compare"
	"rulediff/internal/describe"
	"rulediff/internal/snapshot"
	"rulediff/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// compareCmd is the explicit form of the root command
var compareCmd = &cobra.Command{
	Use:   "compare DATE DATE [DATE...]",
	Short: "Write change reports for consecutive pairs of dates",
	Long: `Resolves each YYYY-MM-DD date to an archive snapshot and writes one
change report per consecutive pair of sorted dates.

Pairs whose dates resolve to the same archive are skipped, as are pairs with
missing archive files (every missing file is listed).`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCompare,
}

func parseDates(args []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(args))
	for _, a := range args {
		d, err := archive.ParseDate(a)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// openLoader opens the configured store and the snapshot loader on top of it.
// The caller closes the store.
func openLoader() (*store.Store, *snapshot.Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	s, err := store.Open(cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	loader := snapshot.NewLoader(s, describe.NewSQLDescriber(s, logger), cfg.Archive.Dir, logger)
	return s, loader, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("at least two dates are required, got %d", len(args))
	}
	targets, err := parseDates(args)
	if err != nil {
		return err
	}

	s, loader, err := openLoader()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	runner := compare.NewRunner(cfg, loader, out, logger)
	summary, err := runner.Run(commandContext(cmd), targets)
	if err != nil {
		logger.Error("run aborted", zap.Error(err))
		return err
	}

	skipped := summary.SkippedSameArchive + summary.SkippedMissingFiles
	fmt.Fprintf(out, "\n%d of %d pairs compared, %d skipped\n", summary.Compared(), summary.Pairs, skipped)
	for _, r := range summary.Reports {
		fmt.Fprintf(out, "  %s (%d changes)\n", r.Path, r.Changes)
	}
	return nil
}
