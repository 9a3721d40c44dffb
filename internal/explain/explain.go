// Package explain shows how a single rule's description changed between two
// snapshots, word by word.
package explain

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"rulediff/internal/archive"
	"rulediff/internal/describe"
	"rulediff/internal/report"
)

// Source is the subset of the snapshot loader that Explain needs.
type Source interface {
	Ensure(ctx context.Context, date time.Time) (ns string, loaded bool, err error)
	Description(ctx context.Context, ns, ruleKey string) (describe.Description, bool, error)
}

// Status classifies a rule across two snapshots.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusChanged   Status = "changed"
	StatusAdded     Status = "added"
	StatusDropped   Status = "dropped"
	StatusAbsent    Status = "absent" // in neither snapshot
)

// Explanation is one rule in two snapshots. Old or New is nil when the rule
// is absent from that snapshot.
type Explanation struct {
	RuleKey  string
	First    time.Time
	Second   time.Time
	Old      *describe.Description
	New      *describe.Description
	Segments []Segment
}

func text(d *describe.Description) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return d.Text
}

// Status reports how the rule changed.
func (e *Explanation) Status() Status {
	switch {
	case e.Old == nil && e.New == nil:
		return StatusAbsent
	case e.Old == nil:
		return StatusAdded
	case e.New == nil:
		return StatusDropped
	case report.Distinct(text(e.Old), text(e.New)):
		return StatusChanged
	default:
		return StatusUnchanged
	}
}

// Explain loads both snapshots if needed and diffs ruleKey's descriptions.
func Explain(ctx context.Context, src Source, ruleKey string, first, second time.Time) (*Explanation, error) {
	e := &Explanation{RuleKey: ruleKey, First: first, Second: second}

	var err error
	if e.Old, err = lookup(ctx, src, first, ruleKey); err != nil {
		return nil, err
	}
	if e.New, err = lookup(ctx, src, second, ruleKey); err != nil {
		return nil, err
	}

	e.Segments = Words(text(e.Old).String, text(e.New).String)
	return e, nil
}

func lookup(ctx context.Context, src Source, date time.Time, ruleKey string) (*describe.Description, error) {
	ns, _, err := src.Ensure(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %s: %w", archive.FormatDate(date), err)
	}
	d, found, err := src.Description(ctx, ns, ruleKey)
	if err != nil || !found {
		return nil, err
	}
	return &d, nil
}

// Write prints the explanation for a terminal.
func (e *Explanation) Write(w io.Writer) {
	fmt.Fprintf(w, "%s: %s\n", e.RuleKey, e.Status())
	writeSide(w, e.First, e.Old)
	writeSide(w, e.Second, e.New)
	if e.Status() == StatusChanged {
		fmt.Fprintf(w, "  diff: %s\n", Markup(e.Segments))
	}
}

func writeSide(w io.Writer, date time.Time, d *describe.Description) {
	if d == nil {
		fmt.Fprintf(w, "  %s: (no rule)\n", archive.FormatDate(date))
		return
	}
	effective := d.EffectiveDate
	if effective == "" {
		effective = "?"
	}
	fmt.Fprintf(w, "  %s: %s (effective %s)\n", archive.FormatDate(date), d.Text.String, effective)
}
