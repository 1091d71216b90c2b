package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the skill corpus",
	Long: `Load every skill document and report malformed documents and duplicate
skill names. Malformed documents are warnings; duplicates are fatal since
they make selection ambiguous.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		eng, err := newEngine()
		if err != nil {
			presenter.Error(err, "Failed to initialize engine")
			os.Exit(1)
		}

		snap, err := eng.Load(ctx)
		if err != nil {
			presenter.Error(err, "Corpus validation failed")
			os.Exit(1)
		}

		for _, warning := range snap.Warnings {
			presenter.Warning(warning)
		}

		presenter.Success(fmt.Sprintf("Corpus valid: %d skill(s), %d warning(s)", snap.Corpus.Len(), len(snap.Warnings)))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
