// Package app assembles the bot and owns its process lifecycle.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/api"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/engine"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/feed"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/sink"
)

// runner is implemented by feeds that consume in the background.
type runner interface {
	Run(ctx context.Context)
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       logger.Logger
	engine    *engine.Engine
	sink      *sink.Async
	hub       *sink.Hub
	feed      feed.Feed
	scheduler *engine.Scheduler
	server    *api.Server
}

func (a *App) Engine() *engine.Engine { return a.engine }

// Run starts every component and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The sink outlives ctx so events from the shutdown path still flush.
	a.sink.Start(context.Background())

	if r, ok := a.feed.(runner); ok {
		go r.Run(ctx)
	}
	if a.server != nil {
		a.server.Start()
	}

	a.log.Info("app_started",
		logger.String("environment", a.cfg.Environment),
		logger.String("feed", a.feed.Name()),
		logger.Bool("paper_trading", a.cfg.Strategy.PaperTrading),
		logger.Int("instruments", len(a.cfg.Instruments)),
	)

	if a.cfg.Schedule.AutoStart {
		if err := a.engine.Start(); err != nil {
			a.log.Warn("engine_autostart_failed", logger.Err(err))
		}
	}

	a.scheduler.Run(ctx)

	a.log.Info("shutdown_signal_received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	a.engine.Stop()

	var firstErr error
	if a.server != nil {
		if err := a.server.Stop(context.Background()); err != nil {
			a.log.Error("http_shutdown_failed", logger.Err(err))
			firstErr = err
		}
	}

	a.sink.Stop()
	if n := a.sink.Dropped(); n > 0 {
		a.log.Warn("sink_events_dropped", logger.Int("count", int(n)))
	}
	a.hub.Close()

	a.log.Info("shutdown_complete")
	return firstErr
}
