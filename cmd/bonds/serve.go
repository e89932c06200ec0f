package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ritzau/crystal-bonds/pkg/analysis"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/watcher"
	"github.com/ritzau/crystal-bonds/pkg/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve inference results over HTTP",
	Long: `Run inference once, then serve the results over HTTP. With --watch the
inputs are re-read and bonds re-inferred whenever a file changes.

Endpoints: /api/crystal, /api/bonds, /api/sanity, /api/rules,
/api/result, POST /api/infer?method=, /api/subscribe/{run_status,bond_graph}
and /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port for the web server")
	serveCmd.Flags().Bool("watch", false, "Re-run inference when input files change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := newRunner()
	server := web.NewServer(runner)

	if _, err := runner.Run(ctx, analysis.RunOptions{
		Trigger: analysis.TriggerStartup,
		Reason:  "initial analysis",
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx, cfg.Port) })
	if cfg.Watch {
		g.Go(func() error {
			if err := watcher.Watch(gctx, runner); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	logging.Info("stopped")
	return err
}
