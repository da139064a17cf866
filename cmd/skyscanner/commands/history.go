package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		storePath string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Inspect past runs in the history store",
		Long: `List recorded runs or, given a run id, show the calculations of that run
cheapest first.`,
		Example: `  # List recent runs
  skyscanner history --store history.db

  # Show the calculations of one run
  skyscanner history 6f1c9b1e-... --store history.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := stores.NewSQLiteStore(storePath)
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			if len(args) == 1 {
				return showRun(ctx, store, args[0])
			}
			return listRuns(ctx, store, limit)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "SQLite run history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func listRuns(ctx context.Context, store *stores.SQLiteStore, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %d journeys, %d routes, %d calculations\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.JourneyCount, run.RouteCount, run.CalculationCount)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
	}
	return nil
}

func showRun(ctx context.Context, store *stores.SQLiteStore, runID string) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	calculations, err := store.ListCalculations(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run          *stores.RunRecord          `json:"run"`
			Calculations []stores.CalculationRecord `json:"calculations"`
		}{run, calculations})
	}

	fmt.Printf("run %s, started %s, %d calculations\n",
		run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.CalculationCount)
	for _, c := range calculations {
		fmt.Printf("  %-20s %8.2f  rate %7.2f  %5.2f days\n",
			c.GroupLabel, c.Price, c.Rate, c.TravelDays)
	}
	return nil
}
