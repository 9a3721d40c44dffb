package main

import (
	"fmt"

	"rulediff/internal/analyze"
	"rulediff/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// valenceCmd tallies an annotated change report
var valenceCmd = &cobra.Command{
	Use:   "valence [FILE]",
	Short: "Count added, changed and dropped rules per valence",
	Long: `Reads an annotated change report (default course-rules.csv) with Valence,
Old Description and New Description columns. Reading stops at the first row
whose width differs from the header.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValence,
}

// requirementsCmd compares receiving credits per sending course
var requirementsCmd = &cobra.Command{
	Use:   "requirements [FILE]",
	Short: "Compare receiving credits before and after, per sending course and valence",
	Long: `Reads an annotated change report (default course-rules.csv) that also has
a Sending Course column, and sums the destination credits ([course:credits]
after "=>") of old and new descriptions per course and valence.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRequirements,
}

// generic499Cmd counts generic-to-specific 499 destination changes
var generic499Cmd = &cobra.Command{
	Use:   "generic499 [FILE]",
	Short: "Count rules that moved from a generic 499 to a discipline-specific 499",
	Long: `Reads an annotated change report (default course-rules.csv) and counts,
per valence, the single-component rules whose old destination was an LAE or
NLA 499 and whose new destination is one discipline's 499. A rule is a
potential match when its receiving credits did not go up.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGeneric499,
}

func readAnnotated(args []string) ([]analyze.Row, error) {
	path := analyze.DefaultFile
	if len(args) > 0 {
		path = args[0]
	}
	rows, err := analyze.ReadFile(path)
	if err != nil {
		return nil, err
	}
	logging.For(logger, logging.CategoryAnalyze).Debug("annotated report read",
		zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

func runValence(cmd *cobra.Command, args []string) error {
	rows, err := readAnnotated(args)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), analyze.RenderValence(analyze.TallyValence(rows)))
	return nil
}

func runRequirements(cmd *cobra.Command, args []string) error {
	rows, err := readAnnotated(args)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), analyze.RenderRequirements(analyze.AnalyzeRequirements(rows)))
	return nil
}

func runGeneric499(cmd *cobra.Command, args []string) error {
	rows, err := readAnnotated(args)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), analyze.RenderGenericToSpecific(analyze.GenericToSpecific(rows)))
	return nil
}
