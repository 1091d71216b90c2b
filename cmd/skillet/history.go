package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent match invocations",
	Long: `Show recent match invocations recorded in the history database.
Recording is enabled with history.enabled in the config or
SKILLET_HISTORY_ENABLED=true.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		dbPath := viper.GetString("history.db_path")
		if dbPath == "" {
			var err error
			dbPath, err = history.DefaultDBPath()
			if err != nil {
				presenter.Error(err, "Failed to resolve history database path")
				os.Exit(1)
			}
		}

		if _, err := os.Stat(dbPath); err != nil {
			presenter.Info("No match history recorded yet")
			return
		}

		store, err := history.NewStore(ctx, dbPath)
		if err != nil {
			presenter.Error(err, "Failed to open history database")
			os.Exit(1)
		}
		defer store.Close()

		records, err := store.List(ctx, limit)
		if err != nil {
			presenter.Error(err, "Failed to list match history")
			os.Exit(1)
		}

		if len(records) == 0 {
			presenter.Info("No match history recorded yet")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tBUDGET\tSNAPSHOT\tSELECTED\tCONTEXT")
		for _, r := range records {
			context := r.ContextText
			if len(context) > 60 {
				context = context[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.BudgetChars, r.SnapshotVersion, r.SelectedIDs, context)
		}
		w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of records to show")
	rootCmd.AddCommand(historyCmd)
}
