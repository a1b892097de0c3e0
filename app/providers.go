package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/wire"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/api"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/engine"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/feed"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/sink"
)

// ProviderSet is the full dependency graph of the bot.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideHub,
	ProvidePublishers,
	ProvideAsyncSink,
	ProvideEngine,
	ProvideFeed,
	ProvideScheduler,
	ProvideHandler,
	ProvideServer,
	ProvideApp,
)

// Publishers are the event destinations enabled in the configuration.
type Publishers []sink.Publisher

// ProvideLogger builds the process logger.
func ProvideLogger(cfg *config.Config) (logger.Logger, error) {
	l, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideHub creates the WebSocket broadcaster. It is always built so /ws
// can be toggled without changing the graph.
func ProvideHub(log logger.Logger) *sink.Hub {
	return sink.NewHub(log)
}

// ProvidePublishers connects every enabled sink. The cleanup closes them in
// reverse order.
func ProvidePublishers(cfg *config.Config, log logger.Logger, hub *sink.Hub) (Publishers, func(), error) {
	var (
		pubs    Publishers
		closers []func() error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("sink_close_failed", logger.Err(err))
			}
		}
	}

	if cfg.Sinks.Log {
		pubs = append(pubs, sink.NewLogPublisher(log))
	}
	if cfg.Sinks.WebSocket {
		pubs = append(pubs, hub)
	}

	if k := cfg.Sinks.Kafka; k.Enabled {
		p, err := sink.NewKafkaPublisher(k.Brokers, k.Topic, sink.WithWriteTimeout(k.WriteTimeout))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("kafka sink: %w", err)
		}
		pubs = append(pubs, p)
		closers = append(closers, p.Close)
		log.Info("sink_enabled", logger.String("sink", p.Name()), logger.String("topic", k.Topic))
	}

	if r := cfg.Sinks.Redis; r.Enabled {
		p := sink.NewRedisPublisher(sink.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			PoolSize: r.PoolSize,
			Prefix:   r.KeyPrefix,
		})
		closers = append(closers, p.Close)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis sink: %w", err)
		}
		pubs = append(pubs, p)
		log.Info("sink_enabled", logger.String("sink", p.Name()), logger.String("addr", r.Addr))
	}

	if ch := cfg.Sinks.ClickHouse; ch.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := sink.OpenClickHouse(ctx, ch.DSN())
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store := sink.NewClickHouseStore(db)
		closers = append(closers, store.Close)
		if err := store.InitSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		pubs = append(pubs, store)
		log.Info("sink_enabled", logger.String("sink", store.Name()), logger.String("database", ch.Database))
	}

	return pubs, cleanup, nil
}

func ProvideAsyncSink(cfg *config.Config, log logger.Logger, pubs Publishers) *sink.Async {
	return sink.NewAsync(log, pubs, sink.WithBufferSize(cfg.Sinks.BufferSize))
}

func ProvideEngine(cfg *config.Config, s *sink.Async, log logger.Logger) (*engine.Engine, error) {
	e, err := engine.New(cfg.Strategy, cfg.Instruments, engine.WithSink(s), engine.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return e, nil
}

// ProvideFeed selects the market-data source named by feed.type.
func ProvideFeed(cfg *config.Config, log logger.Logger) (feed.Feed, func(), error) {
	switch cfg.Feed.Type {
	case "kafka":
		k := cfg.Feed.Kafka
		f, err := feed.NewKafkaFeed(feed.KafkaFeedConfig{
			Brokers:  k.Brokers,
			Topic:    k.Topic,
			GroupID:  k.GroupID,
			MinBytes: k.MinBytes,
			MaxBytes: k.MaxBytes,
		}, cfg.Instruments, log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := f.Close(); err != nil {
				log.Warn("feed_close_failed", logger.Err(err))
			}
		}
		return f, cleanup, nil
	case "coingecko", "":
		cg := cfg.Feed.CoinGecko
		f := feed.NewCoinGecko(cfg.Instruments,
			feed.WithBaseURL(cg.BaseURL),
			feed.WithVsCurrency(cg.VsCurrency),
			feed.WithTimeout(cg.Timeout),
		)
		return f, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown feed type %q", cfg.Feed.Type)
}

func ProvideScheduler(cfg *config.Config, e *engine.Engine, f feed.Feed, log logger.Logger) *engine.Scheduler {
	return engine.NewScheduler(e, f, log, engine.SchedulerConfig{
		IngestInterval:   cfg.Schedule.IngestInterval,
		EvaluateInterval: cfg.Schedule.EvaluateInterval,
		DailyReset:       cfg.Schedule.DailyReset,
	})
}

func ProvideHandler(cfg *config.Config, e *engine.Engine, hub *sink.Hub, log logger.Logger) *api.Handler {
	var ws http.Handler
	if cfg.Sinks.WebSocket {
		ws = hub
	}
	return api.NewHandler(e, ws, log)
}

// ProvideServer returns nil when the HTTP server is disabled.
func ProvideServer(cfg *config.Config, h *api.Handler, log logger.Logger) *api.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	return api.NewServer(h, log,
		api.WithPort(cfg.Server.Port),
		api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
}

func ProvideApp(
	cfg *config.Config,
	log logger.Logger,
	e *engine.Engine,
	s *sink.Async,
	hub *sink.Hub,
	f feed.Feed,
	sched *engine.Scheduler,
	srv *api.Server,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		engine:    e,
		sink:      s,
		hub:       hub,
		feed:      f,
		scheduler: sched,
		server:    srv,
	}
}
