package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// RedisSignalHistory mirrors the engine's in-memory signal history.
	RedisSignalHistory = 50
	// RedisTradeHistory bounds the cached trade list.
	RedisTradeHistory = 1000
)

// RedisPublisher keeps dashboards warm: capped newest-first lists of
// signals and trades plus the latest performance snapshot.
type RedisPublisher struct {
	cli    redis.UniversalClient
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

func NewRedisPublisher(cfg RedisConfig) *RedisPublisher {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return NewRedisPublisherWithClient(cli, cfg.Prefix)
}

func NewRedisPublisherWithClient(cli redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "tradebot"
	}
	return &RedisPublisher{cli: cli, prefix: prefix}
}

func (p *RedisPublisher) Name() string { return "redis" }

// Key namespaces name under the configured prefix.
func (p *RedisPublisher) Key(name string) string { return p.prefix + ":" + name }

// Ping checks connectivity.
func (p *RedisPublisher) Ping(ctx context.Context) error { return p.cli.Ping(ctx).Err() }

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	v, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch e.Type {
		case EventSignal:
			pipe.LPush(ctx, p.Key("signals"), v)
			pipe.LTrim(ctx, p.Key("signals"), 0, RedisSignalHistory-1)
		case EventTrade:
			pipe.LPush(ctx, p.Key("trades"), v)
			pipe.LTrim(ctx, p.Key("trades"), 0, RedisTradeHistory-1)
		case EventMetrics:
			pipe.Set(ctx, p.Key("metrics"), v, 0)
		}
		pipe.Publish(ctx, p.Key("events"), v)
		return nil
	})
	return err
}

func (p *RedisPublisher) Close() error { return p.cli.Close() }
