package analyze

import (
	"regexp"
	"strconv"
	"strings"
)

// destinationCredits matches the credit value of a rendered destination
// course, e.g. the 3 in [200101.1:3].
var destinationCredits = regexp.MustCompile(`\[[^\]]*?:(\d+(?:\.\d+)?)\]`)

// ReceivingCredits sums the destination credit values of a description.
// Only the text between the first "=>" and the next one (or the end) counts.
func ReceivingCredits(description string) float64 {
	parts := strings.SplitN(description, "=>", 3)
	if len(parts) < 2 {
		return 0
	}
	var total float64
	for _, m := range destinationCredits.FindAllStringSubmatch(parts[1], -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total
}

// ValenceTotals aggregates one valence across all sending courses.
type ValenceTotals struct {
	Cases       int // annotated rows
	Courses     int // sending courses with at least one row
	NewRules    int
	TotalBefore float64
	TotalAfter  float64
	More        int // courses whose credits went up
	Less        int
	Same        int
}

// RequirementAnalysis is the result of AnalyzeRequirements.
type RequirementAnalysis struct {
	TotalCourses int
	ByValence    map[Valence]*ValenceTotals

	// MultiValence maps a valence combination such as "POSITIVE+NEGATIVE"
	// to the courses that had changes of each of those valences.
	MultiValence map[string][]string
}

// MultiValenceTotal counts courses across all combinations.
func (a *RequirementAnalysis) MultiValenceTotal() int {
	n := 0
	for _, courses := range a.MultiValence {
		n += len(courses)
	}
	return n
}

type courseValence struct {
	counted  bool
	newRules int
	before   float64
	after    float64
}

type courseCounts struct {
	course string
	by     map[Valence]*courseValence
}

func newCourseCounts(course string) *courseCounts {
	c := &courseCounts{course: course, by: make(map[Valence]*courseValence, len(Valences))}
	for _, v := range Valences {
		c.by[v] = &courseValence{}
	}
	return c
}

// AnalyzeRequirements compares receiving credits before and after each change,
// per sending course and valence. Rows for one course must be contiguous.
func AnalyzeRequirements(rows []Row) *RequirementAnalysis {
	a := &RequirementAnalysis{
		ByValence:    make(map[Valence]*ValenceTotals, len(Valences)),
		MultiValence: make(map[string][]string),
	}
	for _, v := range Valences {
		a.ByValence[v] = &ValenceTotals{}
	}

	var current *courseCounts
	for _, r := range rows {
		a.ByValence[r.Valence].Cases++

		if current == nil || r.SendingCourse != current.course {
			if current != nil {
				a.add(current)
			}
			current = newCourseCounts(r.SendingCourse)
		}

		cv := current.by[r.Valence]
		cv.counted = true
		if r.OldDescription == "" {
			cv.newRules++
		} else {
			cv.before += ReceivingCredits(r.OldDescription)
		}
		if r.NewDescription != "" {
			cv.after += ReceivingCredits(r.NewDescription)
		}
	}
	if current != nil {
		a.add(current)
	}
	return a
}

func (a *RequirementAnalysis) add(c *courseCounts) {
	a.TotalCourses++

	var counted []string
	for _, v := range Valences {
		cv := c.by[v]
		if !cv.counted {
			continue
		}
		counted = append(counted, string(v))

		t := a.ByValence[v]
		t.Courses++
		t.NewRules += cv.newRules
		t.TotalBefore += cv.before
		t.TotalAfter += cv.after
		switch {
		case cv.after > cv.before:
			t.More++
		case cv.after < cv.before:
			t.Less++
		default:
			t.Same++
		}
	}

	if len(counted) > 1 {
		key := strings.Join(counted, "+")
		a.MultiValence[key] = append(a.MultiValence[key], c.course)
	}
}
