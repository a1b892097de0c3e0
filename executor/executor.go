package executor

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/risk"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Executor turns BUY/SELL decisions into positions and trades.
type Executor interface {
	Execute(inst types.Instrument, sig types.Signal, price float64, at time.Time) (types.Trade, bool)
	Position(instrumentID string) (types.Position, bool)
	Positions() []types.Position
	Trades() []types.Trade
}

// Ledger is the paper/live bookkeeping executor: perfect fills at the
// supplied price, at most one long position per instrument and an
// append-only trade log. It is not safe for concurrent use.
type Ledger struct {
	cfg       config.StrategyConfig
	positions map[string]*types.Position
	trades    []types.Trade
}

var _ Executor = (*Ledger)(nil)

func NewLedger(cfg config.StrategyConfig) *Ledger {
	return &Ledger{
		cfg:       cfg,
		positions: make(map[string]*types.Position),
	}
}

// SetConfig swaps the parameters used for new trades.
func (l *Ledger) SetConfig(cfg config.StrategyConfig) { l.cfg = cfg }

func (l *Ledger) mode() types.Mode {
	if l.cfg.PaperTrading {
		return types.Paper
	}
	return types.Live
}

// Execute applies sig at price. A BUY with an open position, a SELL without
// one, an unknown price or a non-directional signal are no-ops.
func (l *Ledger) Execute(inst types.Instrument, sig types.Signal, price float64, at time.Time) (types.Trade, bool) {
	if price <= 0 {
		return types.Trade{}, false
	}
	pos, open := l.positions[inst.ID]

	switch sig.Kind {
	case types.KindBuy:
		if open {
			return types.Trade{}, false
		}
		confidence, _ := sig.Confidence()
		amount := risk.PositionSize(l.cfg, confidence, 0)
		sl, tp := risk.StopLevels(l.cfg, price)
		l.positions[inst.ID] = &types.Position{
			InstrumentID: inst.ID,
			Pair:         inst.Symbol,
			EntryPrice:   price,
			Amount:       amount,
			EntryTime:    at,
			StopLoss:     sl,
			TakeProfit:   tp,
			Side:         types.Long,
		}
		return l.append(types.Trade{
			Side:         types.Buy,
			InstrumentID: inst.ID,
			Pair:         inst.Symbol,
			Price:        price,
			Amount:       amount,
			Timestamp:    at,
			Reason:       sig.Message,
			Mode:         l.mode(),
			Fees:         risk.Fees(l.cfg, amount, price),
		}), true

	case types.KindSell:
		if !open {
			return types.Trade{}, false
		}
		fees := risk.Fees(l.cfg, pos.Amount, price)
		net := (price-pos.EntryPrice)*pos.Amount - fees
		pct := pos.PnLPercent(price)
		delete(l.positions, inst.ID)
		return l.append(types.Trade{
			Side:          types.Sell,
			InstrumentID:  inst.ID,
			Pair:          inst.Symbol,
			Price:         price,
			Amount:        pos.Amount,
			Timestamp:     at,
			Reason:        sig.Message,
			Mode:          l.mode(),
			Profit:        &net,
			ProfitPercent: &pct,
			Fees:          fees,
		}), true
	}
	return types.Trade{}, false
}

func (l *Ledger) append(t types.Trade) types.Trade {
	t.ID = uuid.NewString()
	l.trades = append(l.trades, t)
	return t
}

// Position returns a copy of the open position for id.
func (l *Ledger) Position(id string) (types.Position, bool) {
	p, ok := l.positions[id]
	if !ok {
		return types.Position{}, false
	}
	return *p, true
}

// Mutable exposes the stored position so the risk manager can ratchet its
// trailing stop.
func (l *Ledger) Mutable(id string) (*types.Position, bool) {
	p, ok := l.positions[id]
	return p, ok
}

// Positions returns copies ordered by instrument ID.
func (l *Ledger) Positions() []types.Position {
	out := make([]types.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out
}

// Trades returns a copy of the log in chronological order.
func (l *Ledger) Trades() []types.Trade {
	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// OpenCount is the number of open positions.
func (l *Ledger) OpenCount() int { return len(l.positions) }
