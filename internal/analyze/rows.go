// Package analyze summarizes a change report that reviewers have annotated
// with a valence per rule change.
package analyze

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultFile is the annotated report read when no path is given.
const DefaultFile = "course-rules.csv"

// Valence classifies a rule change's desirability.
type Valence string

const (
	Positive Valence = "POSITIVE"
	Neutral  Valence = "NEUTRAL"
	Negative Valence = "NEGATIVE"
)

// Valences lists every valence in display order.
var Valences = []Valence{Positive, Neutral, Negative}

func (v Valence) valid() bool {
	return v == Positive || v == Neutral || v == Negative
}

// Row is one annotated change.
type Row struct {
	Valence        Valence
	OldDescription string
	NewDescription string
	SendingCourse  string
}

// ColumnName normalizes a header cell: lower case, spaces to underscores.
func ColumnName(header string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
}

// ReadRows decodes an annotated report. The first record is the header.
// Reading stops at the first record whose width differs from the header,
// which is where summary trailer rows begin.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[ColumnName(h)] = i
	}
	for _, required := range []string{"valence", "old_description", "new_description"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	get := func(rec []string, col string) string {
		if i, ok := idx[col]; ok {
			return rec[i]
		}
		return ""
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			break
		}

		row := Row{
			Valence:        Valence(get(rec, "valence")),
			OldDescription: get(rec, "old_description"),
			NewDescription: get(rec, "new_description"),
			SendingCourse:  get(rec, "sending_course"),
		}
		if !row.Valence.valid() {
			return nil, fmt.Errorf("line %d: unknown valence %q", line, row.Valence)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadFile decodes the annotated report at path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
