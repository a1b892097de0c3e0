package risk

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

const (
	SourceRiskManagement = "Risk Management"
	SourceEmergencyStop  = "Emergency Stop"
)

// Manager owns the risk state. It is not safe for concurrent use; the
// engine serialises access.
type Manager struct {
	cfg   config.StrategyConfig
	state types.RiskState
}

// NewManager starts with equity at the configured capital.
func NewManager(cfg config.StrategyConfig) *Manager {
	return &Manager{
		cfg: cfg,
		state: types.RiskState{
			Equity:     cfg.StartingCapital,
			PeakEquity: cfg.StartingCapital,
		},
	}
}

// SetConfig swaps the parameters; accumulated state is kept.
func (m *Manager) SetConfig(cfg config.StrategyConfig) { m.cfg = cfg }

func (m *Manager) State() types.RiskState { return m.state }

func (m *Manager) Halted() bool { return m.state.EmergencyHalted }

// Halt latches the emergency flag until ClearHalt.
func (m *Manager) Halt() { m.state.EmergencyHalted = true }

func (m *Manager) ClearHalt() { m.state.EmergencyHalted = false }

// ResetDaily zeroes the day's realised PnL.
func (m *Manager) ResetDaily() { m.state.DailyPnL = 0 }

// Gate runs the pre-trade checks in priority order. When trading must stop
// it returns the signal explaining why and false.
func (m *Manager) Gate(at time.Time) (types.Signal, bool) {
	if !m.cfg.PaperTrading && m.state.DailyPnL <= -m.cfg.MaxDailyLoss {
		return types.NewAlert(types.KindError, types.SystemPair, SourceRiskManagement,
			"Daily loss limit reached: -$"+num(m.cfg.MaxDailyLoss), at), false
	}
	if !m.cfg.PaperTrading && m.state.MaxDrawdownObserved >= m.cfg.MaxDrawdownPercent {
		return types.NewAlert(types.KindError, types.SystemPair, SourceRiskManagement,
			"Maximum drawdown reached: "+num(m.cfg.MaxDrawdownPercent)+"%", at), false
	}
	if m.cfg.EmergencyStop || m.state.EmergencyHalted {
		return types.NewAlert(types.KindWarning, types.SystemPair, SourceEmergencyStop,
			"Emergency stop activated - all trading halted", at), false
	}
	return types.Signal{}, true
}

// CheckExit ratchets the trailing stop of a profitable position and then
// tests the exits in priority order: trailing stop, stop-loss, take-profit.
func (m *Manager) CheckExit(pos *types.Position, price float64) (string, bool) {
	pnl := pos.PnLPercent(price)
	if pnl > 0 && m.cfg.TrailingStopPercent > 0 {
		if lvl := TrailingLevel(price, m.cfg.TrailingStopPercent); pos.TrailingStop == 0 || lvl > pos.TrailingStop {
			pos.TrailingStop = lvl
		}
	}

	switch {
	case pos.TrailingStop > 0 && price <= pos.TrailingStop:
		return fmt.Sprintf("Trailing stop triggered at $%.2f", pos.TrailingStop), true
	case pnl <= -m.cfg.StopLossPercent:
		return "Stop-loss at " + num(m.cfg.StopLossPercent) + "% loss", true
	case pnl >= m.cfg.TakeProfitPercent:
		return "Take-profit at " + num(m.cfg.TakeProfitPercent) + "% gain", true
	}
	return "", false
}

// RecordClose books a realised result into the daily PnL and the equity
// curve used for drawdown.
func (m *Manager) RecordClose(net float64) {
	s := &m.state
	s.DailyPnL += net
	s.Equity += net
	if s.Equity > s.PeakEquity {
		s.PeakEquity = s.Equity
	}
	if s.PeakEquity > 0 {
		if dd := (s.PeakEquity - s.Equity) / s.PeakEquity * 100; dd > s.MaxDrawdownObserved {
			s.MaxDrawdownObserved = dd
		}
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
