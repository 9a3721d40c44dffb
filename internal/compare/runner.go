// Package compare drives a run: it pairs the requested dates, resolves each
// to an archive snapshot, loads both snapshots and writes one change report
// per pair.
//
// Failure classes:
//   - archive root missing: the run aborts before any pair
//   - raw files missing for a pair: every missing file is printed, the pair is skipped
//   - both dates resolve to one archive: the pair is skipped
//   - load, describe or report failure: the run aborts
package compare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"rulediff/internal/archive"
	"rulediff/internal/config"
	"rulediff/internal/logging"
	"rulediff/internal/report"
	"rulediff/internal/snapshot"

	"go.uber.org/zap"
)

// ErrNoArchives is returned when the archive directory holds no snapshots.
var ErrNoArchives = errors.New("no archives found")

// Report describes one written change report.
type Report struct {
	First   time.Time
	Second  time.Time
	Path    string
	Changes int
}

// Summary tallies the outcome of a run.
type Summary struct {
	Pairs               int
	SkippedSameArchive  int
	SkippedMissingFiles int
	Reports             []Report
}

// Compared is the number of pairs that produced a report.
func (s *Summary) Compared() int {
	return len(s.Reports)
}

// Runner executes comparisons sequentially over one shared store.
type Runner struct {
	cfg    *config.Config
	loader *snapshot.Loader
	out    io.Writer
	logger *zap.Logger

	start time.Time
}

// NewRunner wires a runner. Progress lines go to out.
func NewRunner(cfg *config.Config, loader *snapshot.Loader, out io.Writer, logger *zap.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	loader.SetOutput(out)
	return &Runner{
		cfg:    cfg,
		loader: loader,
		out:    out,
		logger: logging.For(logger, logging.CategoryReport),
	}
}

func (r *Runner) elapsed() {
	fmt.Fprintln(r.out, logging.Seconds(time.Since(r.start)))
}

// Run compares every consecutive pair of the sorted targets.
func (r *Runner) Run(ctx context.Context, targets []time.Time) (*Summary, error) {
	r.start = time.Now()
	summary := &Summary{}

	available, err := archive.ListDates(r.cfg.Archive.Dir)
	if err != nil {
		return summary, err
	}
	if len(available) == 0 {
		return summary, fmt.Errorf("%w in %s", ErrNoArchives, r.cfg.Archive.Dir)
	}
	fmt.Fprintf(r.out, "%d archives from %s to %s\n",
		len(available), archive.FormatDate(available[0]), archive.FormatDate(available[len(available)-1]))

	for _, pair := range archive.Pairs(targets) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Pairs++

		rep, err := r.comparePair(ctx, available, pair, summary)
		if err != nil {
			return summary, err
		}
		if rep != nil {
			summary.Reports = append(summary.Reports, *rep)
		}
	}

	r.logger.Info("run complete",
		zap.Int("pairs", summary.Pairs),
		zap.Int("compared", summary.Compared()),
		zap.Int("skipped_same_archive", summary.SkippedSameArchive),
		zap.Int("skipped_missing_files", summary.SkippedMissingFiles),
		zap.Duration("elapsed", time.Since(r.start)))
	return summary, nil
}

// comparePair returns a nil Report when the pair is skipped.
func (r *Runner) comparePair(ctx context.Context, available []time.Time, pair archive.TargetPair, summary *Summary) (*Report, error) {
	fmt.Fprintf(r.out, "\nTargets are %s and %s\n", archive.FormatDate(pair.First), archive.FormatDate(pair.Second))

	first := archive.Resolve(available, pair.First)
	second := archive.Resolve(available, pair.Second)
	logger := r.logger.With(zap.String("first", archive.FormatDate(first)), zap.String("second", archive.FormatDate(second)))

	if first.Equal(second) {
		fmt.Fprintf(r.out, "Both %s and %s resolve to the same archive (%s). Skipping\n",
			archive.FormatDate(pair.First), archive.FormatDate(pair.Second), archive.FormatDate(first))
		logger.Info("pair skipped: same archive")
		summary.SkippedSameArchive++
		return nil, nil
	}

	fmt.Fprintf(r.out, "Verify archive sets for %s and %s\n", archive.FormatDate(first), archive.FormatDate(second))
	if err := archive.Preflight(r.cfg.Archive.Dir, first, second); err != nil {
		var missing *archive.MissingFilesError
		if !errors.As(err, &missing) {
			return nil, err
		}
		for _, path := range missing.Missing {
			fmt.Fprintf(r.out, "%s is not a file\n", path)
		}
		logger.Warn("pair skipped: missing archive files", zap.Strings("missing", missing.Missing))
		summary.SkippedMissingFiles++
		return nil, nil
	}
	r.elapsed()

	fmt.Fprintf(r.out, "Load archive sets into schemata %s and %s\n",
		archive.NamespaceFor(first), archive.NamespaceFor(second))
	firstNS, err := r.ensure(ctx, first)
	if err != nil {
		return nil, err
	}
	secondNS, err := r.ensure(ctx, second)
	if err != nil {
		return nil, err
	}

	path := report.PathFor(r.cfg.Reports.Dir, first, second)
	fmt.Fprintf(r.out, "Generate %s\n", path)
	changes, err := r.writeReport(ctx, path, first, second, firstNS, secondNS)
	if err != nil {
		return nil, err
	}
	r.elapsed()

	logger.Info("report written", zap.String("path", path), zap.Int("changes", changes))
	return &Report{First: first, Second: second, Path: path, Changes: changes}, nil
}

func (r *Runner) ensure(ctx context.Context, date time.Time) (string, error) {
	ns, loaded, err := r.loader.Ensure(ctx, date)
	if err != nil {
		return ns, fmt.Errorf("failed to load archive %s: %w", archive.FormatDate(date), err)
	}
	if loaded {
		r.elapsed()
	}
	return ns, nil
}

func (r *Runner) writeReport(ctx context.Context, path string, first, second time.Time, firstNS, secondNS string) (int, error) {
	timer := logging.StartTimer(r.logger, "report "+path)
	defer timer.Stop()

	a, err := r.loader.Descriptions(ctx, firstNS)
	if err != nil {
		return 0, err
	}
	b, err := r.loader.Descriptions(ctx, secondNS)
	if err != nil {
		return 0, err
	}

	records := report.Diff(a, b)
	if err := report.Write(path, first, second, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
