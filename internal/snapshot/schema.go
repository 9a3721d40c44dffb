package snapshot

import (
	"rulediff/internal/archive"
	"rulediff/internal/store"
)

// DescriptionsTable holds the rendered rule descriptions of a namespace. The
// raw relation names live in package archive.
const DescriptionsTable = "rule_descriptions"

// Raw relations are rebuilt from the archive on demand, so they are unlogged.
var (
	transferRules = store.Table{
		Name: archive.TransferRulesTable,
		Columns: []store.Column{
			{Name: "rule_key", Type: "text"},
			{Name: "effective_date", Type: "date"},
		},
		PrimaryKey: "rule_key",
		Unlogged:   true,
	}

	sourceCourses = store.Table{
		Name: archive.SourceCoursesTable,
		Columns: []store.Column{
			{Name: "rule_key", Type: "text"},
			{Name: "course_id", Type: "int"},
			{Name: "offer_nbr", Type: "int"},
			{Name: "min_credits", Type: "real"},
			{Name: "max_credits", Type: "real"},
			{Name: "credit_src", Type: "text"},
			{Name: "min_gpa", Type: "real"},
			{Name: "max_gpa", Type: "real"},
		},
		NotNull:  []string{"rule_key"},
		Unlogged: true,
	}

	destinationCourses = store.Table{
		Name: archive.DestinationCoursesTable,
		Columns: []store.Column{
			{Name: "rule_key", Type: "text"},
			{Name: "course_id", Type: "int"},
			{Name: "offer_nbr", Type: "int"},
			{Name: "credits", Type: "real"},
		},
		NotNull:  []string{"rule_key"},
		Unlogged: true,
	}

	ruleDescriptions = store.Table{
		Name: DescriptionsTable,
		Columns: []store.Column{
			{Name: "rule_key", Type: "text"},
			{Name: "effective_date", Type: "text"},
			{Name: "description", Type: "text"},
		},
		PrimaryKey: "rule_key",
	}
)
