package describe

import (
	"context"
	"database/sql"
	"testing"

	"rulediff/internal/archive"
	"rulediff/internal/config"
	"rulediff/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func i64(v int64) sql.NullInt64     { return sql.NullInt64{Int64: v, Valid: true} }
func f64(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		key  string
		src  []sourceComponent
		dst  []destinationComponent
		want string
	}{
		{
			name: "single course with gpa",
			key:  "BAR01-BKL01-ACC-1",
			src:  []sourceComponent{{courseID: i64(100101), offerNbr: i64(1), minCredits: f64(3), maxCredits: f64(3), minGPA: f64(2), maxGPA: f64(4)}},
			dst:  []destinationComponent{{courseID: i64(200101), offerNbr: i64(1), credits: f64(3)}},
			want: "BAR01 100101.1 (3 cr, GPA 2-4) => BKL01 [200101.1:3]",
		},
		{
			name: "credit range and fractional gpa",
			key:  "QNS01-BAR01-MAT-3",
			src:  []sourceComponent{{courseID: i64(300303), offerNbr: i64(1), minCredits: f64(3), maxCredits: f64(4), minGPA: f64(2.5), maxGPA: f64(4)}},
			dst:  []destinationComponent{{courseID: i64(400303), offerNbr: i64(1), credits: f64(3)}},
			want: "QNS01 300303.1 (3-4 cr, GPA 2.5-4) => BAR01 [400303.1:3]",
		},
		{
			name: "several components",
			key:  "BAR01-BKL01-ACC-2",
			src: []sourceComponent{
				{courseID: i64(100202), offerNbr: i64(1), minCredits: f64(4), maxCredits: f64(4)},
				{courseID: i64(100203), offerNbr: i64(1), minCredits: f64(1), maxCredits: f64(1)},
			},
			dst: []destinationComponent{
				{courseID: i64(200202), offerNbr: i64(1), credits: f64(4)},
				{courseID: i64(200203), offerNbr: i64(2), credits: f64(1)},
			},
			want: "BAR01 100202.1 (4 cr) and 100203.1 (1 cr) => BKL01 [200202.1:4] and [200203.2:1]",
		},
		{
			name: "no components",
			key:  "BAR01-BKL01-X-0",
			want: "BAR01 (none) => BKL01 (none)",
		},
		{
			name: "nulls",
			key:  "ODD",
			src:  []sourceComponent{{minGPA: f64(2)}},
			dst:  []destinationComponent{{courseID: i64(1)}},
			want: "ODD ? (GPA 2-?) => ? [1:?]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(tt.key, tt.src, tt.dst))
		})
	}
}

var rawTables = []store.Table{
	{
		Name:       archive.TransferRulesTable,
		Columns:    []store.Column{{Name: "rule_key", Type: "text"}, {Name: "effective_date", Type: "date"}},
		PrimaryKey: "rule_key",
	},
	{
		Name: archive.SourceCoursesTable,
		Columns: []store.Column{
			{Name: "rule_key", Type: "text"}, {Name: "course_id", Type: "int"}, {Name: "offer_nbr", Type: "int"},
			{Name: "min_credits", Type: "real"}, {Name: "max_credits", Type: "real"}, {Name: "credit_src", Type: "text"},
			{Name: "min_gpa", Type: "real"}, {Name: "max_gpa", Type: "real"},
		},
	},
	{
		Name: archive.DestinationCoursesTable,
		Columns: []store.Column{
			{Name: "rule_key", Type: "text"}, {Name: "course_id", Type: "int"}, {Name: "offer_nbr", Type: "int"},
			{Name: "credits", Type: "real"},
		},
	},
}

func TestSQLDescriber_Describe(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(config.StorageConfig{Driver: config.DriverSQLite, DataDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	ns := "_desc"
	require.NoError(t, s.ResetNamespace(ctx, ns))
	tx, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	for _, tbl := range rawTables {
		require.NoError(t, s.CreateTable(ctx, tx, ns, tbl))
	}
	require.NoError(t, s.CopyIn(ctx, tx, ns, archive.TransferRulesTable, []string{"rule_key", "effective_date"}, [][]any{
		{"b-rule", "2020-02-02"},
		{"A01-B01-Z-1", "2019-08-01"},
		{"A01-B01-Y-1", nil},
	}))
	require.NoError(t, s.CopyIn(ctx, tx, ns, archive.SourceCoursesTable, rawTables[1].ColumnNames(), [][]any{
		{"A01-B01-Z-1", "12", "1", "3", "3", "C", nil, nil},
		{"A01-B01-Z-1", "11", "2", "1", "2", "C", nil, nil},
		{"orphan", "99", "1", "3", "3", "C", nil, nil},
	}))
	require.NoError(t, s.CopyIn(ctx, tx, ns, archive.DestinationCoursesTable, rawTables[2].ColumnNames(), [][]any{
		{"A01-B01-Z-1", "21", "1", "3"},
	}))
	require.NoError(t, tx.Commit())

	got, err := NewSQLDescriber(s, zap.NewNop()).Describe(ctx, ns)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Byte-wise order: upper case sorts before lower case.
	assert.Equal(t, "A01-B01-Y-1", got[0].RuleKey)
	assert.Equal(t, "", got[0].EffectiveDate)
	assert.Equal(t, "A01 (none) => B01 (none)", got[0].Text.String)

	assert.Equal(t, "A01-B01-Z-1", got[1].RuleKey)
	assert.Equal(t, "2019-08-01", got[1].EffectiveDate)
	assert.True(t, got[1].Text.Valid)
	assert.Equal(t, "A01 11.2 (1-2 cr) and 12.1 (3 cr) => B01 [21.1:3]", got[1].Text.String)

	assert.Equal(t, "b-rule", got[2].RuleKey)
}

func TestSQLDescriber_MissingTables(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(config.StorageConfig{Driver: config.DriverSQLite, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ResetNamespace(ctx, "_empty"))
	_, err = NewSQLDescriber(s, nil).Describe(ctx, "_empty")
	assert.Error(t, err)
}
