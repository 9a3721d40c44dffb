// Package archive locates dated transfer-rule archive snapshots on disk,
// resolves requested dates to the snapshot in effect on that date, and
// verifies that a snapshot's raw files are all present before loading.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO date format used in archive file names and CLI arguments.
const DateLayout = "2006-01-02"

// Raw archive file suffixes, one set per archive date.
const (
	SourceSuffix         = "_source_courses.csv.bz2"
	DestinationSuffix    = "_destination_courses.csv.bz2"
	EffectiveDatesSuffix = "_effective_dates.csv.bz2"
)

// ErrArchiveDirNotFound is returned when the archive root directory is missing.
var ErrArchiveDirNotFound = errors.New("rules archive dir not found")

// MissingFilesError lists every raw archive file that was absent for a pair.
type MissingFilesError struct {
	Missing []string
}

func (e *MissingFilesError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("missing archive file: %s", e.Missing[0])
	}
	return fmt.Sprintf("%d missing archive files: %s", len(e.Missing), strings.Join(e.Missing, ", "))
}

// TargetPair is two consecutive requested dates, First <= Second.
type TargetPair struct {
	First  time.Time
	Second time.Time
}

// Files holds the three raw archive paths for one date.
type Files struct {
	Source         string
	Destination    string
	EffectiveDates string
}

// All returns the paths in check order.
func (f Files) All() []string {
	return []string{f.Source, f.Destination, f.EffectiveDates}
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ListDates returns the archive dates available in dir, ascending.
// An archive date is known by its effective-dates file.
func ListDates(dir string) ([]time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrArchiveDirNotFound, dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*effective*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list archives in %s: %w", dir, err)
	}

	seen := make(map[time.Time]struct{}, len(matches))
	dates := make([]time.Time, 0, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		if len(name) < len(DateLayout) {
			continue
		}
		d, err := time.Parse(DateLayout, name[:len(DateLayout)])
		if err != nil {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Resolve returns the latest available date on or before target, falling back
// to the earliest available date when none qualifies. available must be sorted
// ascending and non-empty.
func Resolve(available []time.Time, target time.Time) time.Time {
	// First index whose date is after target (bisect right).
	i := sort.Search(len(available), func(i int) bool { return available[i].After(target) })
	if i == 0 {
		return available[0]
	}
	return available[i-1]
}

// Pairs sorts targets and pairs each with its successor.
func Pairs(targets []time.Time) []TargetPair {
	sorted := make([]time.Time, len(targets))
	copy(sorted, targets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	if len(sorted) < 2 {
		return nil
	}
	pairs := make([]TargetPair, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		pairs = append(pairs, TargetPair{First: sorted[i], Second: sorted[i+1]})
	}
	return pairs
}

// NamespaceFor returns the storage namespace name for an archive date, e.g. _2023_01_01.
func NamespaceFor(d time.Time) string {
	return "_" + strings.ReplaceAll(FormatDate(d), "-", "_")
}

// FilesFor returns the raw archive paths for date d in dir.
func FilesFor(dir string, d time.Time) Files {
	prefix := FormatDate(d)
	return Files{
		Source:         filepath.Join(dir, prefix+SourceSuffix),
		Destination:    filepath.Join(dir, prefix+DestinationSuffix),
		EffectiveDates: filepath.Join(dir, prefix+EffectiveDatesSuffix),
	}
}

// Preflight checks every raw file for every date and reports all that are
// missing at once. It returns nil or a *MissingFilesError.
func Preflight(dir string, dates ...time.Time) error {
	var missing []string
	for _, d := range dates {
		for _, path := range FilesFor(dir, d).All() {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				missing = append(missing, path)
			}
		}
	}
	if len(missing) > 0 {
		return &MissingFilesError{Missing: missing}
	}
	return nil
}
