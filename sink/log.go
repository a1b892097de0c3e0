package sink

import (
	"context"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	log logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	switch {
	case e.Signal != nil:
		s := e.Signal
		fields := []logger.Field{
			logger.String("kind", string(s.Kind)),
			logger.String("pair", s.Pair),
			logger.String("indicator", s.Source),
			logger.String("reason", s.Message),
		}
		if c, ok := s.Confidence(); ok {
			fields = append(fields, logger.Float64("confidence", c))
		}
		switch s.Kind {
		case types.KindError:
			p.log.Error("signal", fields...)
		case types.KindWarning:
			p.log.Warn("signal", fields...)
		default:
			p.log.Info("signal", fields...)
		}
	case e.Trade != nil:
		t := e.Trade
		fields := []logger.Field{
			logger.String("side", string(t.Side)),
			logger.String("pair", t.Pair),
			logger.Float64("price", t.Price),
			logger.Float64("amount", t.Amount),
			logger.String("reason", t.Reason),
			logger.String("mode", string(t.Mode)),
		}
		if t.Profit != nil {
			fields = append(fields, logger.Float64("profit", *t.Profit))
		}
		p.log.Info("trade", fields...)
	case e.Metrics != nil:
		m := e.Metrics
		p.log.Info("performance",
			logger.Int("closed_trades", m.TotalTrades),
			logger.Float64("win_rate", m.WinRate),
			logger.Float64("total_profit", m.TotalProfit),
		)
	}
	return nil
}
