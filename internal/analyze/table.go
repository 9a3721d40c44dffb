package analyze

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// Table is a static text table. Numeric columns are right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render draws the table.
func (t *Table) Render() string {
	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(titleStyle.Render(t.Title))
		sb.WriteString("\n")
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// Width includes padding.
	for i := range widths {
		widths[i] += 2
	}

	sep := mutedStyle.Render("|")
	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")

	total := len(t.Headers) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			style := cellStyle.Width(widths[i])
			if i > 0 {
				style = style.Align(lipgloss.Right)
			}
			sb.WriteString(style.Render(cell))
			if i < len(row)-1 && i < len(widths)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func credits(f float64) string {
	if f == float64(int64(f)) {
		return humanize.Comma(int64(f))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderValence formats TallyValence output.
func RenderValence(counts ValenceCounts) string {
	t := NewTable("", "Valence", "Added", "Changed", "Dropped")
	for _, v := range Valences {
		c := counts[v]
		t.AddRow(string(v), count(c.Added), count(c.Changed), count(c.Dropped))
	}
	return t.Render()
}

// RenderGenericToSpecific formats GenericToSpecific output.
func RenderGenericToSpecific(counts GenericToSpecificCounts) string {
	t := NewTable("", "Valence", "Count", "Potential", "Discipline(s)")
	for _, v := range Valences {
		c := counts[v]
		t.AddRow(string(v), count(c.Count), count(c.Potential), strings.Join(c.Disciplines, ", "))
	}
	return t.Render()
}

// RenderRequirements formats AnalyzeRequirements output.
func RenderRequirements(a *RequirementAnalysis) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("MULTI-VALENCE COURSES"))
	sb.WriteString("\n")
	keys := make([]string, 0, len(a.MultiValence))
	for k := range a.MultiValence {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s\n", k, strings.Join(a.MultiValence[k], ", "))
	}
	total := a.MultiValenceTotal()
	plural := "s"
	if total == 1 {
		plural = ""
	}
	fmt.Fprintf(&sb, "%s total multi-valence course%s\n\n", count(total), plural)
	fmt.Fprintf(&sb, "TOTAL COURSES: %s\n\n", count(a.TotalCourses))

	t := NewTable("", "Valence", "Cases", "Courses", "New Rules", "Before", "After", "More", "Less", "Same")
	for _, v := range Valences {
		vt := a.ByValence[v]
		t.AddRow(string(v),
			count(vt.Cases), count(vt.Courses), count(vt.NewRules),
			credits(vt.TotalBefore), credits(vt.TotalAfter),
			count(vt.More), count(vt.Less), count(vt.Same))
	}
	sb.WriteString(t.Render())
	return sb.String()
}
