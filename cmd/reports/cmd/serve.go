package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"resell-reports/internal/api"
)

var serveAddr string // Listen address override

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report HTTP API",
	Long: `Start the HTTP API. Abandoned runs older than runs.stale_after are
marked failed before the listener opens.

Routes:
  GET  /api/v1/reports
  POST /api/v1/reports/runs
  GET  /api/v1/reports/runs/{runID}
  GET  /api/v1/reports/runs/{runID}/spreadsheet
  GET  /api/v1/reports/runs/{runID}/print`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := loadConfig(cmd)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reapStaleRuns(ctx, a); err != nil {
		return err
	}

	server := api.NewServer(a.runner, logger, api.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	return server.Run(ctx)
}

// reapStaleRuns fails runs a crashed process left running.
func reapStaleRuns(ctx context.Context, a *app) error {
	if a.cfg.Runs.StaleAfter <= 0 {
		return nil
	}
	now := time.Now()
	n, err := a.runs.ReapStale(ctx, now.Add(-a.cfg.Runs.StaleAfter), now)
	if err != nil {
		return fmt.Errorf("reap stale runs: %w", err)
	}
	if n > 0 {
		a.logger.Warn().Int("runs", n).Dur("stale_after", a.cfg.Runs.StaleAfter).Msg("marked abandoned runs as failed")
	}
	return nil
}
