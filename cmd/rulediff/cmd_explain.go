package main

import (
	"fmt"

	"rulediff/internal/archive"
	"rulediff/internal/explain"

	"github.com/spf13/cobra"
)

// explainCmd shows one rule across two snapshots
var explainCmd = &cobra.Command{
	Use:   "explain RULE_KEY DATE DATE",
	Short: "Show how one rule's description changed between two dates",
	Long: `Resolves both dates to archive snapshots, loads them if needed, and prints
the rule's description in each with a word-level diff:

  [-removed words-]{+added words+}`,
	Args: cobra.ExactArgs(3),
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	ruleKey := args[0]
	targets, err := parseDates(args[1:])
	if err != nil {
		return err
	}
	pair := archive.Pairs(targets)[0]

	available, err := archive.ListDates(cfg.Archive.Dir)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return fmt.Errorf("no archives in %s", cfg.Archive.Dir)
	}
	first := archive.Resolve(available, pair.First)
	second := archive.Resolve(available, pair.Second)
	if err := archive.Preflight(cfg.Archive.Dir, first, second); err != nil {
		return err
	}

	s, loader, err := openLoader()
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := explain.Explain(commandContext(cmd), loader, ruleKey, first, second)
	if err != nil {
		return err
	}
	e.Write(cmd.OutOrStdout())
	return nil
}
