// Package describe turns the raw relations of a loaded snapshot into one
// human-readable description per transfer rule.
package describe

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rulediff/internal/archive"
	"rulediff/internal/logging"
	"rulediff/internal/store"

	"go.uber.org/zap"
)

// Description is one (rule_key, effective_date, description) triple.
type Description struct {
	RuleKey       string
	EffectiveDate string
	Text          sql.NullString
}

// Describer derives the descriptions of every rule in a snapshot namespace.
// Results are ordered by rule key.
type Describer interface {
	Describe(ctx context.Context, ns string) ([]Description, error)
}

// SQLDescriber reads the namespace's raw tables and renders descriptions in Go.
type SQLDescriber struct {
	store  *store.Store
	logger *zap.Logger
}

// NewSQLDescriber returns the default Describer.
func NewSQLDescriber(s *store.Store, logger *zap.Logger) *SQLDescriber {
	return &SQLDescriber{store: s, logger: logging.For(logger, logging.CategoryDescribe)}
}

type sourceComponent struct {
	courseID   sql.NullInt64
	offerNbr   sql.NullInt64
	minCredits sql.NullFloat64
	maxCredits sql.NullFloat64
	minGPA     sql.NullFloat64
	maxGPA     sql.NullFloat64
}

type destinationComponent struct {
	courseID sql.NullInt64
	offerNbr sql.NullInt64
	credits  sql.NullFloat64
}

type rule struct {
	key           string
	effectiveDate sql.NullString
	sources       []sourceComponent
	destinations  []destinationComponent
}

// Describe implements Describer.
func (d *SQLDescriber) Describe(ctx context.Context, ns string) ([]Description, error) {
	timer := logging.StartTimer(d.logger, "describe "+ns)
	defer timer.Stop()

	rules, err := d.loadRules(ctx, ns)
	if err != nil {
		return nil, err
	}
	if err := d.loadSources(ctx, ns, rules); err != nil {
		return nil, err
	}
	if err := d.loadDestinations(ctx, ns, rules); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Description, 0, len(keys))
	for _, k := range keys {
		r := rules[k]
		out = append(out, Description{
			RuleKey:       r.key,
			EffectiveDate: r.effectiveDate.String,
			Text:          sql.NullString{String: render(r.key, r.sources, r.destinations), Valid: true},
		})
	}

	d.logger.Debug("derived descriptions", zap.String("ns", ns), zap.Int("rules", len(out)))
	return out, nil
}

func (d *SQLDescriber) loadRules(ctx context.Context, ns string) (map[string]*rule, error) {
	query := "SELECT rule_key, CAST(effective_date AS TEXT) FROM " + d.store.Qualify(ns, archive.TransferRulesTable)
	rows, err := d.store.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s transfer rules: %w", ns, err)
	}
	defer rows.Close()

	rules := make(map[string]*rule)
	for rows.Next() {
		r := &rule{}
		if err := rows.Scan(&r.key, &r.effectiveDate); err != nil {
			return nil, fmt.Errorf("failed to scan %s transfer rule: %w", ns, err)
		}
		rules[r.key] = r
	}
	return rules, rows.Err()
}

func (d *SQLDescriber) loadSources(ctx context.Context, ns string, rules map[string]*rule) error {
	query := `SELECT rule_key, course_id, offer_nbr, min_credits, max_credits, min_gpa, max_gpa
		FROM ` + d.store.Qualify(ns, archive.SourceCoursesTable) + `
		ORDER BY rule_key, course_id, offer_nbr`
	rows, err := d.store.DB().QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read %s source courses: %w", ns, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var c sourceComponent
		if err := rows.Scan(&key, &c.courseID, &c.offerNbr, &c.minCredits, &c.maxCredits, &c.minGPA, &c.maxGPA); err != nil {
			return fmt.Errorf("failed to scan %s source course: %w", ns, err)
		}
		r, ok := rules[key]
		if !ok {
			d.logger.Debug("source course without rule", zap.String("ns", ns), zap.String("rule_key", key))
			continue
		}
		r.sources = append(r.sources, c)
	}
	return rows.Err()
}

func (d *SQLDescriber) loadDestinations(ctx context.Context, ns string, rules map[string]*rule) error {
	query := `SELECT rule_key, course_id, offer_nbr, credits
		FROM ` + d.store.Qualify(ns, archive.DestinationCoursesTable) + `
		ORDER BY rule_key, course_id, offer_nbr`
	rows, err := d.store.DB().QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read %s destination courses: %w", ns, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var c destinationComponent
		if err := rows.Scan(&key, &c.courseID, &c.offerNbr, &c.credits); err != nil {
			return fmt.Errorf("failed to scan %s destination course: %w", ns, err)
		}
		r, ok := rules[key]
		if !ok {
			d.logger.Debug("destination course without rule", zap.String("ns", ns), zap.String("rule_key", key))
			continue
		}
		r.destinations = append(r.destinations, c)
	}
	return rows.Err()
}

// render formats one rule, e.g.
//
//	BAR01 100101.1 (3 cr, GPA 2-4) => BKL01 [200101.1:3]
//
// Institutions are the first two dash-separated parts of the rule key.
func render(ruleKey string, sources []sourceComponent, destinations []destinationComponent) string {
	sending, receiving := institutions(ruleKey)

	src := make([]string, 0, len(sources))
	for _, c := range sources {
		src = append(src, renderSource(c))
	}
	dst := make([]string, 0, len(destinations))
	for _, c := range destinations {
		dst = append(dst, renderDestination(c))
	}

	var b strings.Builder
	b.WriteString(sending)
	b.WriteString(" ")
	b.WriteString(joinOrNone(src))
	b.WriteString(" => ")
	b.WriteString(receiving)
	b.WriteString(" ")
	b.WriteString(joinOrNone(dst))
	return b.String()
}

func institutions(ruleKey string) (string, string) {
	parts := strings.SplitN(ruleKey, "-", 3)
	switch len(parts) {
	case 0:
		return "?", "?"
	case 1:
		return parts[0], "?"
	default:
		return parts[0], parts[1]
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, " and ")
}

func renderSource(c sourceComponent) string {
	s := course(c.courseID, c.offerNbr)
	var cond []string
	if cr := creditRange(c.minCredits, c.maxCredits); cr != "" {
		cond = append(cond, cr+" cr")
	}
	if c.minGPA.Valid || c.maxGPA.Valid {
		cond = append(cond, "GPA "+numRange(c.minGPA, c.maxGPA))
	}
	if len(cond) > 0 {
		s += " (" + strings.Join(cond, ", ") + ")"
	}
	return s
}

func renderDestination(c destinationComponent) string {
	credits := "?"
	if c.credits.Valid {
		credits = num(c.credits.Float64)
	}
	return "[" + course(c.courseID, c.offerNbr) + ":" + credits + "]"
}

func course(id, offer sql.NullInt64) string {
	s := "?"
	if id.Valid {
		s = strconv.FormatInt(id.Int64, 10)
	}
	if offer.Valid {
		s += "." + strconv.FormatInt(offer.Int64, 10)
	}
	return s
}

func creditRange(lo, hi sql.NullFloat64) string {
	if !lo.Valid && !hi.Valid {
		return ""
	}
	if lo.Valid && hi.Valid && lo.Float64 == hi.Float64 {
		return num(lo.Float64)
	}
	return numRange(lo, hi)
}

func numRange(lo, hi sql.NullFloat64) string {
	l, h := "?", "?"
	if lo.Valid {
		l = num(lo.Float64)
	}
	if hi.Valid {
		h = num(hi.Float64)
	}
	return l + "-" + h
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
