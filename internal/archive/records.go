package archive

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// Raw archive rows. The files carry no header; gocsv maps columns by field order.
// Every field is text so that empty cells can be loaded as NULL.

// TransferRule is one row of the effective-dates file.
type TransferRule struct {
	RuleKey       string `csv:"rule_key"`
	EffectiveDate string `csv:"effective_date"`
}

// Values returns the row in column order with empty cells as nil.
func (r TransferRule) Values() []any {
	return []any{r.RuleKey, nullable(r.EffectiveDate)}
}

// SourceCourse is one sending-side course component of a rule.
type SourceCourse struct {
	RuleKey    string `csv:"rule_key"`
	CourseID   string `csv:"course_id"`
	OfferNbr   string `csv:"offer_nbr"`
	MinCredits string `csv:"min_credits"`
	MaxCredits string `csv:"max_credits"`
	CreditSrc  string `csv:"credit_src"`
	MinGPA     string `csv:"min_gpa"`
	MaxGPA     string `csv:"max_gpa"`
}

func (r SourceCourse) Values() []any {
	return []any{
		r.RuleKey,
		nullable(r.CourseID),
		nullable(r.OfferNbr),
		nullable(r.MinCredits),
		nullable(r.MaxCredits),
		nullable(r.CreditSrc),
		nullable(r.MinGPA),
		nullable(r.MaxGPA),
	}
}

// DestinationCourse is one receiving-side course component of a rule.
type DestinationCourse struct {
	RuleKey  string `csv:"rule_key"`
	CourseID string `csv:"course_id"`
	OfferNbr string `csv:"offer_nbr"`
	Credits  string `csv:"credits"`
}

func (r DestinationCourse) Values() []any {
	return []any{r.RuleKey, nullable(r.CourseID), nullable(r.OfferNbr), nullable(r.Credits)}
}

// Relations the archive files are loaded into.
const (
	TransferRulesTable      = "transfer_rules"
	SourceCoursesTable      = "source_courses"
	DestinationCoursesTable = "destination_courses"
)

// Column lists match the Values order of each row type.
var (
	TransferRuleColumns      = []string{"rule_key", "effective_date"}
	SourceCourseColumns      = []string{"rule_key", "course_id", "offer_nbr", "min_credits", "max_credits", "credit_src", "min_gpa", "max_gpa"}
	DestinationCourseColumns = []string{"rule_key", "course_id", "offer_nbr", "credits"}
)

// nullable maps an empty cell to NULL. encoding/csv strips quotes, so a
// quoted "" is indistinguishable from an empty cell and loads as NULL too.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// decodeRecords decodes header-less CSV from r and calls fn with each record
// as it is decoded. Decoding runs ahead by at most one record. Errors from fn
// are returned unchanged.
func decodeRecords[T any](r io.Reader, name string, fn func(T) error) error {
	records := make(chan T)
	decoded := make(chan error, 1)
	go func() {
		// The channel is closed when decoding ends, successfully or not.
		decoded <- gocsv.UnmarshalToChanWithoutHeaders(r, records)
	}()

	var fnErr error
	for rec := range records {
		if fnErr == nil {
			fnErr = fn(rec)
		}
	}
	err := <-decoded
	if fnErr != nil {
		return fnErr
	}
	if err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return fmt.Errorf("failed to decode archive %s: %w", name, err)
	}
	return nil
}

// eachRecord decompresses path in-stream and calls fn with each decoded record.
func eachRecord[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer f.Close()
	return decodeRecords(bzip2.NewReader(f), path, fn)
}

// EachTransferRule streams an effective-dates archive file into fn.
func EachTransferRule(path string, fn func(TransferRule) error) error {
	return eachRecord(path, fn)
}

// EachSourceCourse streams a source-courses archive file into fn.
func EachSourceCourse(path string, fn func(SourceCourse) error) error {
	return eachRecord(path, fn)
}

// EachDestinationCourse streams a destination-courses archive file into fn.
func EachDestinationCourse(path string, fn func(DestinationCourse) error) error {
	return eachRecord(path, fn)
}
