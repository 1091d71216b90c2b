package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jingkaihe/skillet/pkg/presenter"
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// MatchConfig holds configuration for the match command
type MatchConfig struct {
	BudgetChars int
	Pinned      []string
	Excluded    []string
	Format      string
}

// NewMatchConfig creates a MatchConfig with default values
func NewMatchConfig() *MatchConfig {
	return &MatchConfig{
		BudgetChars: 16000,
		Format:      "text",
	}
}

var matchCmd = &cobra.Command{
	Use:   "match <context text>",
	Short: "Select the skills relevant to a task context",
	Long: `Rank the loaded skills against the given task context and emit the
budget-bounded bundle of guidance that should be injected.

Formats:
  text    human-readable summary with diagnostics
  json    machine-readable bundle with per-skill inclusion reasons
  bundle  the raw bundle text only, ready for injection

Examples:
  skillet match "best practices for fastapi pydantic models"
  skillet match --budget 8000 --pin code-review "refactoring a python service"
  skillet match --format json "database migrations" | jq .diagnostics`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getMatchConfigFromFlags(cmd.Flags())

		if config.BudgetChars <= 0 {
			presenter.Error(errors.Errorf("budget must be positive, got %d", config.BudgetChars), "Invalid query")
			os.Exit(2)
		}

		eng, err := newEngine()
		if err != nil {
			presenter.Error(err, "Failed to initialize engine")
			os.Exit(1)
		}

		if _, err := eng.Load(ctx); err != nil {
			presenter.Error(err, "Failed to load skill corpus")
			os.Exit(1)
		}

		bundle, err := eng.Match(ctx, skilltypes.Query{
			ContextText: strings.Join(args, " "),
			BudgetChars: config.BudgetChars,
			Pinned:      config.Pinned,
			Excluded:    config.Excluded,
		})
		if err != nil {
			if errors.Is(err, skilltypes.ErrInvalidQuery) {
				presenter.Error(err, "Invalid query")
				os.Exit(2)
			}
			presenter.Error(err, "Match failed")
			os.Exit(1)
		}

		if err := renderBundle(bundle, config.Format); err != nil {
			presenter.Error(err, "Failed to render bundle")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewMatchConfig()
	matchCmd.Flags().Int("budget", defaults.BudgetChars, "Maximum combined body size (bytes) of the emitted bundle")
	matchCmd.Flags().StringSlice("pin", nil, "Skill ids to force-include ahead of ranking (repeatable)")
	matchCmd.Flags().StringSlice("exclude", nil, "Skill ids to exclude from selection (repeatable)")
	matchCmd.Flags().String("format", defaults.Format, "Output format (text, json, bundle)")
	rootCmd.AddCommand(matchCmd)
}

func getMatchConfigFromFlags(flags *pflag.FlagSet) *MatchConfig {
	config := NewMatchConfig()
	if budget, err := flags.GetInt("budget"); err == nil {
		config.BudgetChars = budget
	}
	if pinned, err := flags.GetStringSlice("pin"); err == nil {
		config.Pinned = pinned
	}
	if excluded, err := flags.GetStringSlice("exclude"); err == nil {
		config.Excluded = excluded
	}
	if format, err := flags.GetString("format"); err == nil {
		config.Format = format
	}
	return config
}

func renderBundle(bundle *skilltypes.Bundle, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(bundle)

	case "bundle":
		fmt.Println(bundle.Text)
		return nil

	case "text":
		diag := bundle.Diagnostics
		presenter.Section(fmt.Sprintf("Selected %d skill(s)", len(bundle.Items)))
		for _, item := range bundle.Items {
			presenter.Info(fmt.Sprintf("  %-30s %s", item.ID, diag.Reasons[item.ID]))
		}
		if diag.ExcludedCount > 0 {
			presenter.Info(fmt.Sprintf("Excluded: %d skill(s)", diag.ExcludedCount))
			excluded := make([]string, 0, diag.ExcludedCount)
			for id, reason := range diag.Reasons {
				if reason == skilltypes.ReasonExcludedByBudget || reason == skilltypes.ReasonExcludedByConflict {
					excluded = append(excluded, id)
				}
			}
			sort.Strings(excluded)
			for _, id := range excluded {
				presenter.Info(fmt.Sprintf("  %-30s %s", id, diag.Reasons[id]))
			}
		}
		if diag.Truncated {
			presenter.Warning("Pinned content alone exceeds the budget")
		}
		if diag.BudgetTooSmall {
			presenter.Warning("Budget too small for any ranked skill")
		}
		for _, w := range diag.LoadWarnings {
			presenter.Warning(w)
		}
		return nil

	default:
		return errors.Errorf("unknown format %q", format)
	}
}
