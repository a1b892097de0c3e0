package engine

import (
	"context"
	"sync"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/feed"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/metrics"
)

// Scheduler drives the engine with two independent tickers: ingestion polls
// the feed, evaluation runs cycles. A slow poll never delays a cycle and a
// long cycle never delays a poll.
type Scheduler struct {
	engine        *Engine
	feed          feed.Feed
	log           logger.Logger
	ingestEvery   time.Duration
	evaluateEvery time.Duration
	dailyReset    bool
	now           func() time.Time

	mu      sync.Mutex
	lastDay string
}

type SchedulerConfig struct {
	IngestInterval   time.Duration
	EvaluateInterval time.Duration
	DailyReset       bool
}

func NewScheduler(e *Engine, f feed.Feed, log logger.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.IngestInterval <= 0 {
		cfg.IngestInterval = 5 * time.Second
	}
	if cfg.EvaluateInterval <= 0 {
		cfg.EvaluateInterval = 3 * time.Second
	}
	return &Scheduler{
		engine:        e,
		feed:          f,
		log:           log,
		ingestEvery:   cfg.IngestInterval,
		evaluateEvery: cfg.EvaluateInterval,
		dailyReset:    cfg.DailyReset,
		now:           time.Now,
	}
}

// Run polls once immediately, then ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler_started",
		logger.String("feed", s.feed.Name()),
		logger.Duration("ingest_interval", s.ingestEvery),
		logger.Duration("evaluate_interval", s.evaluateEvery),
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Ingest(ctx)
		ticker := time.NewTicker(s.ingestEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Ingest(ctx)
			}
		}
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.evaluateEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Evaluate()
			}
		}
	}()
	wg.Wait()
	s.log.Info("scheduler_stopped")
}

// Ingest performs one poll.
func (s *Scheduler) Ingest(ctx context.Context) {
	quotes, err := s.feed.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.FeedErrors.WithLabelValues(s.feed.Name()).Inc()
		s.engine.ReportFeedError(err)
		return
	}
	s.engine.Ingest(quotes)
}

// Evaluate rolls the trading day when the UTC date changes, then runs a
// cycle.
func (s *Scheduler) Evaluate() {
	if s.dailyReset {
		day := s.now().UTC().Format(time.DateOnly)
		s.mu.Lock()
		rolled := s.lastDay != "" && s.lastDay != day
		s.lastDay = day
		s.mu.Unlock()
		if rolled {
			s.engine.ResetDailyPnL()
		}
	}
	s.engine.Cycle()
}
