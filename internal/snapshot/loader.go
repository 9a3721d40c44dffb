// Package snapshot materializes archive snapshots into storage namespaces.
//
// A snapshot is ready when its rule_descriptions relation exists. Anything
// short of that (no namespace, or raw tables left behind by a run that died
// before descriptions were committed) is rebuilt from the archive files.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"rulediff/internal/archive"
	"rulediff/internal/describe"
	"rulediff/internal/logging"
	"rulediff/internal/store"

	"go.uber.org/zap"
)

// Loader ensures snapshots exist in the store.
type Loader struct {
	store      *store.Store
	describer  describe.Describer
	archiveDir string
	out        io.Writer
	logger     *zap.Logger
}

// NewLoader returns a Loader reading raw files from archiveDir.
func NewLoader(s *store.Store, d describe.Describer, archiveDir string, logger *zap.Logger) *Loader {
	return &Loader{
		store:      s,
		describer:  d,
		archiveDir: archiveDir,
		out:        io.Discard,
		logger:     logging.For(logger, logging.CategorySnapshot),
	}
}

// SetOutput sets where console progress lines are written.
func (l *Loader) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.out = w
}

// Ready reports whether the snapshot for date has its description relation.
func (l *Loader) Ready(ctx context.Context, date time.Time) (bool, error) {
	return l.store.TableExists(ctx, archive.NamespaceFor(date), DescriptionsTable)
}

// Ensure makes the snapshot for date queryable and returns its namespace.
// loaded is false when the snapshot was already present and nothing was done.
func (l *Loader) Ensure(ctx context.Context, date time.Time) (ns string, loaded bool, err error) {
	ns = archive.NamespaceFor(date)
	logger := l.logger.With(zap.String("ns", ns))

	ready, err := l.store.TableExists(ctx, ns, DescriptionsTable)
	if err != nil {
		return ns, false, err
	}
	if ready {
		fmt.Fprintf(l.out, "%s already loaded\n", ns)
		logger.Debug("snapshot already loaded")
		return ns, false, nil
	}

	fmt.Fprintf(l.out, "Load archive set into schema %s\n", ns)
	timer := logging.StartTimer(logger, "snapshot.Ensure")
	defer timer.StopWithInfo()

	if err := l.store.ResetNamespace(ctx, ns); err != nil {
		return ns, false, err
	}
	numRules, err := l.loadRaw(ctx, ns, archive.FilesFor(l.archiveDir, date))
	if err != nil {
		return ns, false, err
	}
	logger.Info("raw tables loaded", zap.Int("rules", numRules))

	fmt.Fprintf(l.out, "Make rule descriptions for %s\n", archive.FormatDate(date))
	descriptions, err := l.describer.Describe(ctx, ns)
	if err != nil {
		return ns, false, fmt.Errorf("failed to describe %s: %w", ns, err)
	}
	fmt.Fprintf(l.out, "%d %s rules\n", len(descriptions), archive.FormatDate(date))

	if err := l.storeDescriptions(ctx, ns, descriptions); err != nil {
		return ns, false, err
	}
	return ns, true, nil
}

// rowsOf adapts an archive record stream to a bulk-load row source.
func rowsOf[T interface{ Values() []any }](each func(string, func(T) error) error, path string) store.RowSource {
	return func(send func([]any) error) error {
		return each(path, func(rec T) error { return send(rec.Values()) })
	}
}

// loadRaw streams the three raw relations from the archive files and indexes
// them in one unit of work. It returns the number of rules loaded.
func (l *Loader) loadRaw(ctx context.Context, ns string, files archive.Files) (int, error) {
	tx, err := l.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin load of %s: %w", ns, err)
	}
	defer tx.Rollback()

	loads := []struct {
		table   store.Table
		columns []string
		rows    store.RowSource
	}{
		{transferRules, archive.TransferRuleColumns, rowsOf(archive.EachTransferRule, files.EffectiveDates)},
		{sourceCourses, archive.SourceCourseColumns, rowsOf(archive.EachSourceCourse, files.Source)},
		{destinationCourses, archive.DestinationCourseColumns, rowsOf(archive.EachDestinationCourse, files.Destination)},
	}
	counts := make([]int, len(loads))
	for i, ld := range loads {
		if err := l.store.CreateTable(ctx, tx, ns, ld.table); err != nil {
			return 0, err
		}
		n, err := l.store.CopyFrom(ctx, tx, ns, ld.table.Name, ld.columns, ld.rows)
		if err != nil {
			return 0, err
		}
		counts[i] = n
	}

	for _, table := range []string{archive.SourceCoursesTable, archive.DestinationCoursesTable} {
		if err := l.store.CreateIndex(ctx, tx, ns, table, "rule_key"); err != nil {
			return 0, err
		}
	}
	for _, ld := range loads {
		if err := l.store.Analyze(ctx, tx, ns, ld.table.Name); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit load of %s: %w", ns, err)
	}
	l.logger.Debug("raw relations loaded", zap.String("ns", ns),
		zap.Int("source_courses", counts[1]), zap.Int("destination_courses", counts[2]))
	return counts[0], nil
}

func (l *Loader) storeDescriptions(ctx context.Context, ns string, descriptions []describe.Description) error {
	rows := make([][]any, len(descriptions))
	for i, d := range descriptions {
		var effective any
		if d.EffectiveDate != "" {
			effective = d.EffectiveDate
		}
		var text any
		if d.Text.Valid {
			text = d.Text.String
		}
		rows[i] = []any{d.RuleKey, effective, text}
	}

	tx, err := l.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin description load of %s: %w", ns, err)
	}
	defer tx.Rollback()

	if err := l.store.CreateTable(ctx, tx, ns, ruleDescriptions); err != nil {
		return err
	}
	if err := l.store.CopyIn(ctx, tx, ns, DescriptionsTable, ruleDescriptions.ColumnNames(), rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit descriptions of %s: %w", ns, err)
	}
	return nil
}

// Description looks up one rule in ns. found is false when the rule is absent.
func (l *Loader) Description(ctx context.Context, ns, ruleKey string) (d describe.Description, found bool, err error) {
	query := "SELECT rule_key, effective_date, description FROM " + l.store.Qualify(ns, DescriptionsTable) +
		" WHERE rule_key = " + l.store.Dialect().Placeholder(1)

	var effective sql.NullString
	err = l.store.DB().QueryRowContext(ctx, query, ruleKey).Scan(&d.RuleKey, &effective, &d.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return describe.Description{}, false, nil
	}
	if err != nil {
		return describe.Description{}, false, fmt.Errorf("failed to read %s description of %s: %w", ns, ruleKey, err)
	}
	d.EffectiveDate = effective.String
	return d, true, nil
}

// Descriptions returns the description relation of ns ordered byte-wise by rule key.
func (l *Loader) Descriptions(ctx context.Context, ns string) ([]describe.Description, error) {
	query := "SELECT rule_key, effective_date, description FROM " + l.store.Qualify(ns, DescriptionsTable)
	rows, err := l.store.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s descriptions: %w", ns, err)
	}
	defer rows.Close()

	var out []describe.Description
	for rows.Next() {
		var d describe.Description
		var effective sql.NullString
		if err := rows.Scan(&d.RuleKey, &effective, &d.Text); err != nil {
			return nil, fmt.Errorf("failed to scan %s description: %w", ns, err)
		}
		d.EffectiveDate = effective.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Database collation is not byte-wise in general.
	sort.Slice(out, func(i, j int) bool { return out[i].RuleKey < out[j].RuleKey })
	return out, nil
}
