package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sshbot/sshbotctl/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past provisioning runs",
		Long: `Show provisioning run history recorded in the state database.

Without flags the most recent runs are listed. With --run the per-step
events of a single run are shown.`,
		Example: `  sshbotctl history
  sshbotctl history --limit 5
  sshbotctl history --run 2f1c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := stores.Open(cmd.Context(), stateDB)
			if err != nil {
				return fmt.Errorf("failed to open state database %s: %w", stateDB, err)
			}
			defer store.Close()

			if runID != "" {
				return printRunDetail(cmd, store, runID)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no provisioning runs recorded")
				return nil
			}

			for _, run := range runs {
				completed := "-"
				if run.CompletedAt != nil {
					completed = run.CompletedAt.Format(time.RFC3339)
				}
				fmt.Printf("%s  %-9s  started %s  completed %s  %s\n",
					run.ID, run.Status, run.StartedAt.Format(time.RFC3339), completed, run.UnitName)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show step events for one run")

	return cmd
}

func printRunDetail(cmd *cobra.Command, store *stores.SQLiteStore, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s) on %s\n", run.ID, run.Status, run.InstallDir)
	if run.Error != nil {
		fmt.Printf("error: %s\n", *run.Error)
	}

	events, err := store.ListStepEvents(cmd.Context(), runID)
	if err != nil {
		return err
	}
	for _, ev := range events {
		line := fmt.Sprintf("  %-12s %-9s %4dms", ev.Step, ev.Status, ev.DurationMS)
		if ev.Error != nil {
			line += "  " + *ev.Error
		}
		fmt.Println(line)
	}
	return nil
}
