package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all loaded skills",
	Long:  `List all skills in the corpus with their ids, trigger descriptions, and body sizes.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		eng, err := newEngine()
		if err != nil {
			presenter.Error(err, "Failed to initialize engine")
			os.Exit(1)
		}

		snap, err := eng.Load(ctx)
		if err != nil {
			presenter.Error(err, "Failed to load skill corpus")
			os.Exit(1)
		}

		if snap.Corpus.Len() == 0 {
			presenter.Info("No skills found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVERSION\tSIZE\tGROUP\tDESCRIPTION")
		for _, skill := range snap.Corpus.Skills {
			version := skill.Version
			if version == "" {
				version = "-"
			}
			group := skill.ConflictGroup
			if group == "" {
				group = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", skill.ID, version, skill.BodySize, group, skill.Description)
		}
		w.Flush()

		for _, warning := range snap.Warnings {
			presenter.Warning(warning)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
