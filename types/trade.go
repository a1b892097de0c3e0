package types

import "time"

// PositionSide is always LONG; shorting is not supported.
type PositionSide string

const Long PositionSide = "LONG"

// Position is an open holding. Only TrailingStop changes after entry and it
// only ever moves up. Zero means unset.
type Position struct {
	InstrumentID string       `json:"instrument_id"`
	Pair         string       `json:"pair"`
	EntryPrice   float64      `json:"entry_price"`
	Amount       float64      `json:"amount"`
	EntryTime    time.Time    `json:"entry_time"`
	StopLoss     float64      `json:"stop_loss"`
	TakeProfit   float64      `json:"take_profit"`
	TrailingStop float64      `json:"trailing_stop,omitempty"`
	Side         PositionSide `json:"side"`
}

// PnLPercent is the unrealised move from entry to price.
func (p Position) PnLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// Trade is an executed buy or sell. Only SELL trades carry Profit and
// ProfitPercent; Profit is already net of Fees.
type Trade struct {
	ID            string    `json:"id"`
	Side          Side      `json:"type"`
	InstrumentID  string    `json:"instrument_id"`
	Pair          string    `json:"pair"`
	Price         float64   `json:"price"`
	Amount        float64   `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason"`
	Mode          Mode      `json:"status"`
	Profit        *float64  `json:"profit,omitempty"`
	ProfitPercent *float64  `json:"profit_percent,omitempty"`
	Fees          float64   `json:"fees"`
}

// Closed reports whether the trade realised a result.
func (t Trade) Closed() bool { return t.Side == Sell && t.Profit != nil }

// RiskState is the engine's running risk bookkeeping.
type RiskState struct {
	DailyPnL            float64 `json:"daily_pnl"`
	MaxDrawdownObserved float64 `json:"max_drawdown_observed"`
	EmergencyHalted     bool    `json:"emergency_halted"`
	Equity              float64 `json:"equity"`
	PeakEquity          float64 `json:"peak_equity"`
}

// PerformanceMetrics is derived from the closed trades.
type PerformanceMetrics struct {
	TotalTrades           int     `json:"total_trades"`
	WinningTrades         int     `json:"winning_trades"`
	LosingTrades          int     `json:"losing_trades"`
	WinRate               float64 `json:"win_rate"`
	TotalProfit           float64 `json:"total_profit"`
	AverageProfitPercent  float64 `json:"average_profit_percent"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	ReturnDispersionRatio float64 `json:"return_dispersion_ratio"`
	ProfitFactor          float64 `json:"profit_factor"`
	AverageWin            float64 `json:"average_win"`
	AverageLoss           float64 `json:"average_loss"`
}
