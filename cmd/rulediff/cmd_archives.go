package main

import (
	"fmt"

	"rulediff/internal/archive"
	"rulediff/internal/snapshot"

	"github.com/spf13/cobra"
)

// archivesCmd lists the archive snapshots
var archivesCmd = &cobra.Command{
	Use:   "archives [DATE...]",
	Short: "List available archive dates and whether they are loaded, or show what dates resolve to",
	RunE:  runArchives,
}

func runArchives(cmd *cobra.Command, args []string) error {
	targets, err := parseDates(args)
	if err != nil {
		return err
	}

	available, err := archive.ListDates(cfg.Archive.Dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(available) == 0 {
		fmt.Fprintf(out, "No archives in %s\n", cfg.Archive.Dir)
		return nil
	}

	if len(targets) == 0 {
		s, loader, err := openLoader()
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := commandContext(cmd)

		fmt.Fprintf(out, "%d archives from %s to %s\n",
			len(available), archive.FormatDate(available[0]), archive.FormatDate(available[len(available)-1]))
		for _, d := range available {
			status := "complete"
			if err := archive.Preflight(cfg.Archive.Dir, d); err != nil {
				status = "incomplete"
			}

			ready, err := loader.Ready(ctx, d)
			if err != nil {
				return err
			}
			loaded := "not loaded"
			if ready {
				n, err := s.Count(ctx, archive.NamespaceFor(d), snapshot.DescriptionsTable)
				if err != nil {
					return err
				}
				loaded = fmt.Sprintf("loaded, %d rules", n)
			}
			fmt.Fprintf(out, "  %s  %-10s  %s\n", archive.FormatDate(d), status, loaded)
		}
		return nil
	}

	for _, t := range targets {
		fmt.Fprintf(out, "%s -> %s\n", archive.FormatDate(t), archive.FormatDate(archive.Resolve(available, t)))
	}
	return nil
}
