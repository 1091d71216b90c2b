package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/engine"
	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/loader"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/telemetry"
	"github.com/jingkaihe/skillet/pkg/version"
)

var tracerShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Skill discovery and context-injection engine",
	Long: `Skillet loads a directory of skill documents (SKILL.md files with YAML
frontmatter), ranks them against a task context, and assembles a
deterministic, size-bounded bundle of their guidance for injection into an
agent's working context.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			presenter.Warning(fmt.Sprintf("Invalid log level %q, using info", viper.GetString("log_level")))
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		if viper.GetBool("quiet") {
			presenter.SetQuiet(true)
		}

		shutdown, err := telemetry.InitTracer(cmd.Context(), telemetry.Config{
			Enabled:        viper.GetBool("tracing.enabled"),
			ServiceName:    "skillet",
			ServiceVersion: version.Get().Version,
			SamplerType:    viper.GetString("tracing.sampler"),
			SamplerRatio:   viper.GetFloat64("tracing.ratio"),
		})
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("Failed to initialize tracing")
		} else {
			tracerShutdown = shutdown
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if tracerShutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerShutdown(shutdownCtx); err != nil {
				logger.G(cmd.Context()).WithError(err).Debug("Tracer shutdown failed")
			}
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	viper.SetEnvPrefix("SKILLET")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillet")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("tracing.sampler", "always")
	viper.SetDefault("tracing.ratio", 0.1)

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().StringSlice("skill-dir", nil, "Skill directories to load from (repeatable, overrides defaults)")
	rootCmd.PersistentFlags().StringSlice("allow", nil, "Glob patterns restricting which skill ids load")
	rootCmd.PersistentFlags().String("conflict-groups", "", "Path to a YAML file with conflict-group overrides")
	rootCmd.PersistentFlags().Duration("load-timeout", 30*time.Second, "Maximum time a corpus load may block")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("skill_dirs", rootCmd.PersistentFlags().Lookup("skill-dir"))
	viper.BindPFlag("allow_patterns", rootCmd.PersistentFlags().Lookup("allow"))
	viper.BindPFlag("conflict_groups_file", rootCmd.PersistentFlags().Lookup("conflict-groups"))
	viper.BindPFlag("load_timeout", rootCmd.PersistentFlags().Lookup("load-timeout"))
}

// newEngine builds an engine from the resolved configuration
func newEngine() (*engine.Engine, error) {
	var opts []engine.Option

	if dirs := viper.GetStringSlice("skill_dirs"); len(dirs) > 0 {
		opts = append(opts, engine.WithSkillDirs(dirs...))
	}
	if patterns := viper.GetStringSlice("allow_patterns"); len(patterns) > 0 {
		l, err := loader.New(loader.WithAllowPatterns(patterns...))
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithLoader(l))
	}
	if path := viper.GetString("conflict_groups_file"); path != "" {
		opts = append(opts, engine.WithConflictGroupsFile(path))
	}
	if d := viper.GetDuration("load_timeout"); d > 0 {
		opts = append(opts, engine.WithLoadTimeout(d))
	}
	if viper.GetBool("history.enabled") {
		dbPath := viper.GetString("history.db_path")
		if dbPath == "" {
			var err error
			dbPath, err = history.DefaultDBPath()
			if err != nil {
				return nil, err
			}
		}
		store, err := history.NewStore(context.Background(), dbPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithRecorder(store))
	}

	return engine.New(opts...)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
