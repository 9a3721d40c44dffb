package analyze

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotated = `Valence,Sending Course,Old Description,New Description
POSITIVE,ACC 101,A 1 => B [2:3],A 1 => B [2:4]
POSITIVE,ACC 101,,A 9 => B [7:3] and [8:1]
NEGATIVE,ACC 101,A 2 => B [5:3],
NEUTRAL,ENG 201,A 3 => B [6:3],A 3 => C [6:3]
NEGATIVE,MAT 301,A 4 => B [9:4] and [10:0.5],A 4 => B [9:3]
Total,5
POSITIVE,IGNORED,,after the trailer
`

func readFixture(t *testing.T) []Row {
	t.Helper()
	rows, err := ReadRows(strings.NewReader(annotated))
	require.NoError(t, err)
	return rows
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "old_description", ColumnName("Old Description"))
	assert.Equal(t, "valence", ColumnName(" VALENCE "))
}

func TestReadRows_StopsAtTrailer(t *testing.T) {
	rows := readFixture(t)
	require.Len(t, rows, 5)
	assert.Equal(t, Row{
		Valence:        Positive,
		SendingCourse:  "ACC 101",
		OldDescription: "A 1 => B [2:3]",
		NewDescription: "A 1 => B [2:4]",
	}, rows[0])
	assert.Equal(t, "MAT 301", rows[4].SendingCourse)
}

func TestReadRows_Errors(t *testing.T) {
	_, err := ReadRows(strings.NewReader("Valence,Old Description\nPOSITIVE,x\n"))
	assert.ErrorContains(t, err, "new_description")

	_, err = ReadRows(strings.NewReader("Valence,Old Description,New Description\nGREAT,x,y\n"))
	assert.ErrorContains(t, err, `unknown valence "GREAT"`)

	rows, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(annotated), 0644))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestTallyValence(t *testing.T) {
	counts := TallyValence(readFixture(t))
	assert.Equal(t, ValenceCounts{
		Positive: {Added: 1, Changed: 1},
		Neutral:  {Changed: 1},
		Negative: {Changed: 1, Dropped: 1},
	}, counts)
}

func TestTallyValence_Empty(t *testing.T) {
	counts := TallyValence(nil)
	assert.Len(t, counts, 3)
	assert.Equal(t, ChangeCounts{}, counts[Neutral])
}

func TestReceivingCredits(t *testing.T) {
	assert.Equal(t, 4.5, ReceivingCredits("X [1:9] => Y [2:3] and [3:1.5]"))
	assert.Equal(t, 3.0, ReceivingCredits("BAR01 100101.1 (3 cr, GPA 2-4) => BKL01 [200101.1:3]"))
	assert.Zero(t, ReceivingCredits("no arrow [1:3]"))
	assert.Zero(t, ReceivingCredits("A => B [1:?]"))
}

func TestAnalyzeRequirements(t *testing.T) {
	a := AnalyzeRequirements(readFixture(t))

	assert.Equal(t, 3, a.TotalCourses)
	assert.Equal(t, &ValenceTotals{Cases: 2, Courses: 1, NewRules: 1, TotalBefore: 3, TotalAfter: 8, More: 1}, a.ByValence[Positive])
	assert.Equal(t, &ValenceTotals{Cases: 1, Courses: 1, TotalBefore: 3, TotalAfter: 3, Same: 1}, a.ByValence[Neutral])
	assert.Equal(t, &ValenceTotals{Cases: 2, Courses: 2, TotalBefore: 7.5, TotalAfter: 3, Less: 2}, a.ByValence[Negative])

	assert.Equal(t, map[string][]string{"POSITIVE+NEGATIVE": {"ACC 101"}}, a.MultiValence)
	assert.Equal(t, 1, a.MultiValenceTotal())
}

func TestAnalyzeRequirements_Empty(t *testing.T) {
	a := AnalyzeRequirements(nil)
	assert.Zero(t, a.TotalCourses)
	assert.Zero(t, a.MultiValenceTotal())
}

func TestRenderValence(t *testing.T) {
	out := RenderValence(TallyValence(readFixture(t)))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5, out)
	assert.Contains(t, lines[0], "Valence")
	assert.Contains(t, lines[0], "Dropped")
	assert.Contains(t, lines[2], "POSITIVE")
	assert.Contains(t, lines[4], "NEGATIVE")
}

func TestRenderRequirements(t *testing.T) {
	out := RenderRequirements(AnalyzeRequirements(readFixture(t)))
	assert.Contains(t, out, "MULTI-VALENCE COURSES")
	assert.Contains(t, out, "  POSITIVE+NEGATIVE: ACC 101\n")
	assert.Contains(t, out, "1 total multi-valence course\n")
	assert.Contains(t, out, "TOTAL COURSES: 3")
	assert.Contains(t, out, "7.5")
}

func TestTable_Render(t *testing.T) {
	tbl := NewTable("Counts", "Name", "N")
	tbl.AddRow("alpha", "1,234")
	tbl.AddRow("b", "5")

	out := tbl.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Counts", strings.TrimSpace(lines[0]))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[3]), "alpha"))
	// All body rows share one width.
	assert.Equal(t, len(lines[3]), len(lines[4]))
}

func TestReceivingCredits_StopsAtSecondArrow(t *testing.T) {
	assert.Equal(t, 3.0, ReceivingCredits("A => B [1:3] => C [2:4]"))
}

func TestGenericToSpecific(t *testing.T) {
	rows := []Row{
		{Valence: Positive, OldDescription: "A 1 => LAE 499 [1:3]", NewDescription: "A 1 => HIS 499 [2:3]"},
		{Valence: Positive, OldDescription: "A 2 => NLA 499 [3:3]", NewDescription: "A 2 => MAT 499 [4:4]"},
		{Valence: Positive, OldDescription: "A 3 => LAE 499 [5:3]", NewDescription: "A 3 => HIS 499 [6:2]"},
		{Valence: Negative, OldDescription: "A 4 => LAE 499 [7:3]", NewDescription: "A 4 => ENG 499 [8:0]"},
		// multi-component old side
		{Valence: Neutral, OldDescription: "A 5 => LAE 499 [9:3] and [10:1]", NewDescription: "A 5 => BIO 499 [11:3]"},
		// multi-component new side
		{Valence: Neutral, OldDescription: "A 6 => LAE 499 [12:3]", NewDescription: "A 6 => BIO 499 [13:3] and [14:1]"},
		// new side not a 499
		{Valence: Neutral, OldDescription: "A 7 => LAE 499 [15:3]", NewDescription: "A 7 => BIO 101 [16:3]"},
		// old side not generic
		{Valence: Neutral, OldDescription: "A 8 => BIO 101 [17:3]", NewDescription: "A 8 => BIO 499 [18:3]"},
		// added and dropped rules
		{Valence: Neutral, NewDescription: "A 9 => BIO 499 [19:3]"},
		{Valence: Neutral, OldDescription: "A 10 => LAE 499 [20:3]"},
	}

	tests := []struct {
		valence Valence
		want    GenericCounts
	}{
		{Positive, GenericCounts{Count: 3, Potential: 2, Disciplines: []string{"HIS", "MAT"}}},
		{Neutral, GenericCounts{}},
		{Negative, GenericCounts{Count: 1, Potential: 1, Disciplines: []string{"ENG"}}},
	}

	counts := GenericToSpecific(rows)
	require.Len(t, counts, len(Valences))
	for _, tt := range tests {
		t.Run(string(tt.valence), func(t *testing.T) {
			assert.Equal(t, tt.want, counts[tt.valence])
		})
	}
}

func TestRenderGenericToSpecific(t *testing.T) {
	out := RenderGenericToSpecific(GenericToSpecificCounts{
		Positive: {Count: 1234, Potential: 2, Disciplines: []string{"HIS", "MAT"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5, out)
	assert.Contains(t, lines[0], "Discipline(s)")
	assert.Contains(t, lines[2], "1,234")
	assert.Contains(t, lines[2], "HIS, MAT")
	assert.Contains(t, lines[3], "NEUTRAL")
}
