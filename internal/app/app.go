// Package app wires the forecast pipeline, its sinks and the REST server
// into the pvforecast daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/pvforecast/internal/controllers/restserver"
	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/managers"
	"github.com/chrissnell/pvforecast/internal/sinks"
	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
	once   bool
}

// New creates a new application instance. With once set, Run computes and
// distributes a single forecast and returns.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger, once bool) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		once:   once,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pcfg, err := forecast.ConfigFromData(a.cfg)
	if err != nil {
		return err
	}

	client := weather.NewClient(a.cfg.Weather, log.Named("weather"))
	pipeline := forecast.NewPipeline(pcfg, client, log.Named("forecast"))

	latest := sinks.NewMemorySink()
	sinkManager, err := managers.NewSinkManager(ctx, a.cfg, log.Named("sinks"), latest)
	if err != nil {
		return err
	}
	defer sinkManager.Close()

	if a.once {
		return runOnce(ctx, pipeline, sinkManager, time.Now())
	}

	now := time.Now().In(pcfg.Timezone)
	window := InitialWindow(a.cfg.Daemon, a.cfg.Location, now)
	if rise, set := Daylight(a.cfg.Location, now); rise != "" {
		a.logger.Infow("daylight today", "sunrise", rise, "sunset", set)
	}
	d := newDaemon(pipeline, sinkManager, window, a.cfg.Daemon, pcfg.Timezone, a.logger.Named("daemon"))

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.REST.Enabled {
		ctrl, err := restserver.NewController(a.cfg.REST, latest, log.Named("rest"))
		if err != nil {
			return err
		}
		g.Go(func() error { return ctrl.Run(gctx) })
	}

	g.Go(func() error { return d.run(gctx) })

	a.logger.Info("application started successfully")

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	a.logger.Info("shutdown complete")
	return err
}

// runOnce computes a single forecast and hands it to every sink.
func runOnce(ctx context.Context, p runner, d distributor, now time.Time) error {
	fc, err := p.Run(ctx, now)
	if err != nil {
		return fmt.Errorf("forecast run failed: %w", err)
	}
	if err := d.Distribute(ctx, fc); err != nil {
		return fmt.Errorf("forecast distribution failed: %w", err)
	}
	return nil
}
