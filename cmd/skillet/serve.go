package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillet/pkg/api"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host  string
	Port  int
	Watch bool
}

// NewServeConfig creates a ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host:  "localhost",
		Port:  8080,
		Watch: true,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match API over HTTP",
	Long: `Start a local HTTP server exposing the skill corpus and match API.
The corpus is reloaded automatically when skill directories change unless
--watch=false is given; in-flight queries keep the snapshot they started
with.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)

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
		presenter.Info(fmt.Sprintf("Loaded %d skill(s)", snap.Corpus.Len()))

		server, err := api.NewServer(eng, &api.ServerConfig{Host: config.Host, Port: config.Port})
		if err != nil {
			presenter.Error(err, "Failed to create server")
			os.Exit(1)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(gctx)
		})
		if config.Watch {
			g.Go(func() error {
				if err := eng.Watch(gctx); err != nil && gctx.Err() == nil {
					logger.G(gctx).WithError(err).Warn("Corpus watcher stopped")
				}
				return nil
			})
		}

		presenter.Info(fmt.Sprintf("Serving on http://%s:%d", config.Host, config.Port))
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			presenter.Error(err, "Server failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the server to")
	serveCmd.Flags().Bool("watch", defaults.Watch, "Reload the corpus when skill directories change")
	rootCmd.AddCommand(serveCmd)
}

func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()
	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	return config
}
