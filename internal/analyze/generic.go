package analyze

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// Alternation is unanchored on the right: any NLA in the text matches.
	genericDestination  = regexp.MustCompile(`=> LAE|NLA`)
	specificDestination = regexp.MustCompile(`=> ([A-Z]+) 499`)
)

// GenericCounts summarizes rules that moved from a generic elective 499
// (LAE or NLA) to a single discipline-specific 499.
type GenericCounts struct {
	Count       int
	Potential   int      // new credits are zero or no more than the old
	Disciplines []string // sorted, distinct
}

// GenericToSpecificCounts holds GenericCounts for every valence.
type GenericToSpecificCounts map[Valence]GenericCounts

// GenericToSpecific counts changed rules whose old destination was a generic
// 499 and whose new destination is one discipline's 499. Rules with more than
// one component on either side ("and") are not counted.
func GenericToSpecific(rows []Row) GenericToSpecificCounts {
	disciplines := make(map[Valence]map[string]bool, len(Valences))
	counts := make(GenericToSpecificCounts, len(Valences))
	for _, v := range Valences {
		counts[v] = GenericCounts{}
		disciplines[v] = make(map[string]bool)
	}

	for _, r := range rows {
		if r.OldDescription == "" || r.NewDescription == "" {
			continue
		}
		if strings.Contains(r.OldDescription, "and") || !genericDestination.MatchString(r.OldDescription) {
			continue
		}
		if strings.Contains(r.NewDescription, "and") {
			continue
		}
		m := specificDestination.FindStringSubmatch(r.NewDescription)
		if m == nil {
			continue
		}

		c := counts[r.Valence]
		c.Count++
		disciplines[r.Valence][m[1]] = true
		after := ReceivingCredits(r.NewDescription)
		if after == 0 || after <= ReceivingCredits(r.OldDescription) {
			c.Potential++
		}
		counts[r.Valence] = c
	}

	for v, set := range disciplines {
		if len(set) == 0 {
			continue
		}
		c := counts[v]
		for d := range set {
			c.Disciplines = append(c.Disciplines, d)
		}
		sort.Strings(c.Disciplines)
		counts[v] = c
	}
	return counts
}
