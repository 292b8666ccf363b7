package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/meteo-core/internal/api"
	"github.com/nerrad567/meteo-core/internal/infrastructure/config"
	"github.com/nerrad567/meteo-core/internal/monitor"
)

func newRunCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sample continuously and serve the query API",
		Long: `Run the sampling loop every monitor.interval seconds and, when
api.enabled is set, the HTTP query API. Both stop on SIGINT or SIGTERM
once the pass in progress has finished.

With monitor.mode set to "once" a single pass is made and the command
exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStation(cmd.Context(), configPath(), cmd.OutOrStdout())
		},
	}
}

func newOnceCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single sampling pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), configPath())
			if err != nil {
				return err
			}
			defer a.close()
			return a.runPass(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// runStation is the long-running collector.
//
// Parameters:
//   - ctx: Cancelled on shutdown signals
//   - configPath: Path to config.yaml
//   - out: Destination of the single-pass summary in once mode
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func runStation(ctx context.Context, configPath string, out io.Writer) error {
	a, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	a.log.Info("starting meteo",
		"version", version,
		"commit", commit,
		"build_date", date,
		"mode", a.cfg.Monitor.Mode,
	)

	if a.cfg.Monitor.Mode == config.ModeOnce {
		return a.runPass(ctx, out)
	}

	sinks, err := a.sinks()
	if err != nil {
		return err
	}

	var hub *api.Hub
	if a.cfg.API.Enabled && a.cfg.WebSocket.Enabled {
		hub = api.NewHub(a.cfg.WebSocket, a.log)
		sinks = append(sinks, hub)
	}

	m := a.newMonitor(ctx, sinks, prometheus.DefaultRegisterer)
	loop := monitor.NewContinuous(m, a.cfg.MonitorInterval())
	loop.SetLogger(a.log)

	var srv *api.Server
	if a.cfg.API.Enabled {
		svc, err := a.queryService()
		if err != nil {
			return err
		}
		srv, err = api.New(api.Deps{
			Config:  a.cfg.API,
			WS:      a.cfg.WebSocket,
			Logger:  a.log,
			Query:   svc,
			DB:      a.db,
			Monitor: loop,
			Hub:     hub,
			Checks:  a.checks,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
	} else {
		a.log.Info("API disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	if srv != nil {
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	a.log.Info("initialisation complete, waiting for shutdown signal",
		"interval", a.cfg.MonitorInterval(),
		"sensors", len(m.Sensors()),
	)

	err = g.Wait()
	a.log.Info("meteo stopped")
	return err
}

// runPass performs one pass through every configured sink and writes a
// one-line summary to out.
func (a *app) runPass(ctx context.Context, out io.Writer) error {
	sinks, err := a.sinks()
	if err != nil {
		return err
	}

	m := a.newMonitor(ctx, sinks, nil)
	result, err := m.Run(ctx)
	fmt.Fprintf(out, "pass %s: %d collected, %d failed in %s\n",
		result.ID, result.Collected, result.Failed, result.Duration)
	return err
}
