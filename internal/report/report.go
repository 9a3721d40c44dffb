// Package report compares the rule descriptions of two snapshots and writes
// the rules whose descriptions differ as a CSV report.
package report

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"rulediff/internal/archive"
	"rulediff/internal/describe"
)

// Side is one snapshot's view of a rule. Both fields are NULL when the rule
// is absent from that snapshot.
type Side struct {
	Description   sql.NullString
	EffectiveDate sql.NullString
}

// ChangeRecord is one row of a change report.
type ChangeRecord struct {
	RuleKey string
	First   Side
	Second  Side
}

// Distinct reports whether a and b differ under IS DISTINCT FROM semantics:
// two NULLs are equal, NULL and a value are distinct.
func Distinct(a, b sql.NullString) bool {
	if a.Valid != b.Valid {
		return true
	}
	return a.Valid && a.String != b.String
}

func sideOf(d describe.Description) Side {
	return Side{
		Description:   d.Text,
		EffectiveDate: sql.NullString{String: d.EffectiveDate, Valid: d.EffectiveDate != ""},
	}
}

// Diff full-outer-joins two description lists on rule key and keeps the rows
// whose descriptions are distinct. Both inputs must be sorted by rule key;
// the result is too.
func Diff(first, second []describe.Description) []ChangeRecord {
	var out []ChangeRecord
	emit := func(key string, f, s Side) {
		if Distinct(f.Description, s.Description) {
			out = append(out, ChangeRecord{RuleKey: key, First: f, Second: s})
		}
	}

	i, j := 0, 0
	for i < len(first) || j < len(second) {
		switch {
		case j >= len(second) || (i < len(first) && first[i].RuleKey < second[j].RuleKey):
			emit(first[i].RuleKey, sideOf(first[i]), Side{})
			i++
		case i >= len(first) || second[j].RuleKey < first[i].RuleKey:
			emit(second[j].RuleKey, Side{}, sideOf(second[j]))
			j++
		default:
			emit(first[i].RuleKey, sideOf(first[i]), sideOf(second[j]))
			i++
			j++
		}
	}
	return out
}

// FileName is the report name for a pair of archive dates.
func FileName(first, second time.Time) string {
	return archive.FormatDate(first) + "_" + archive.FormatDate(second) + ".csv"
}

// PathFor returns the report path for a pair inside dir.
func PathFor(dir string, first, second time.Time) string {
	return filepath.Join(dir, FileName(first, second))
}

// Header returns the report header row.
func Header(first, second time.Time) []string {
	return []string{
		"Rule Key",
		archive.FormatDate(first) + " Rule",
		"Effective Date",
		archive.FormatDate(second) + " Rule",
		"Effective Date",
	}
}

func cell(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

// Write creates or truncates path and writes the header and records.
func Write(path string, first, second time.Time, records []ChangeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if err := writeRecords(f, first, second, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report %s: %w", path, err)
	}
	return nil
}

func writeRecords(out io.Writer, first, second time.Time, records []ChangeRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(Header(first, second)); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.RuleKey,
			cell(r.First.Description),
			cell(r.First.EffectiveDate),
			cell(r.Second.Description),
			cell(r.Second.EffectiveDate),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
