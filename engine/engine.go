// Package engine owns the trading state and runs the evaluation cycle:
// risk gate, signal generation, execution and position exits.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/executor"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/metrics"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/performance"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/risk"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/sink"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/strategy"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

var (
	ErrEngineRunning   = errors.New("engine is running")
	ErrEmergencyHalted = errors.New("emergency stop is active")
	ErrNoPrice         = errors.New("no price available")
	ErrTradeRejected   = errors.New("trade rejected")
	ErrTradingHalted   = errors.New("trading halted by risk limits")
)

const (
	SourcePriceFeed      = "Price Feed"
	feedFailureMessage   = "Failed to fetch prices - check connection"
	emergencyCloseReason = "Emergency stop"
	emergencyMessage     = "Emergency stop activated - all trading halted and positions closed"
	manualReason         = "Manual execution"
)

// Status is a point-in-time summary for dashboards.
type Status struct {
	Running         bool            `json:"running"`
	FeedConnected   bool            `json:"feed_connected"`
	EmergencyHalted bool            `json:"emergency_halted"`
	Mode            types.Mode      `json:"mode"`
	OpenPositions   int             `json:"open_positions"`
	Instruments     int             `json:"instruments"`
	LastCycle       time.Time       `json:"last_cycle,omitempty"`
	Risk            types.RiskState `json:"risk"`
}

// Engine owns positions, trades, risk state and metrics. Every mutating
// operation holds mu for its whole duration, so cycles never overlap and a
// stop only takes effect between cycles. The price store has its own lock
// and is written only by ingestion.
type Engine struct {
	mu sync.Mutex

	cfg         config.StrategyConfig
	instruments []types.Instrument
	byID        map[string]types.Instrument

	store  *strategy.Store
	gen    *strategy.Generator
	risk   *risk.Manager
	ledger *executor.Ledger

	sink sink.Sink
	log  logger.Logger
	now  func() time.Time

	running   bool
	perf      types.PerformanceMetrics
	latest    map[string]strategy.Evaluation
	lastCycle time.Time

	signals       *signalLog
	feedConnected atomic.Bool
}

type Option func(*Engine)

// WithSink sets the notification target. Defaults to sink.Nop.
func WithSink(s sink.Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the time source used to stamp signals and trades.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStore shares an existing price store instead of allocating one.
func WithStore(s *strategy.Store) Option {
	return func(e *Engine) { e.store = s }
}

// New builds a stopped engine for instruments.
func New(cfg config.StrategyConfig, instruments []types.Instrument, opts ...Option) (*Engine, error) {
	if len(instruments) == 0 {
		return nil, errors.New("engine: at least one instrument is required")
	}
	gen, err := strategy.NewGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e := &Engine{
		cfg:         cfg,
		instruments: append([]types.Instrument(nil), instruments...),
		byID:        make(map[string]types.Instrument, len(instruments)),
		gen:         gen,
		risk:        risk.NewManager(cfg),
		ledger:      executor.NewLedger(cfg),
		sink:        sink.Nop{},
		log:         logger.Nop(),
		now:         time.Now,
		latest:      make(map[string]strategy.Evaluation),
		signals:     newSignalLog(SignalHistory),
	}
	for _, in := range instruments {
		e.byID[in.ID] = in
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = strategy.NewStore(instruments, strategy.BufferCapacity)
	}
	e.updateGauges()
	return e, nil
}

// Store is the price store fed by ingestion.
func (e *Engine) Store() *strategy.Store { return e.store }

// Instruments returns the configured instruments.
func (e *Engine) Instruments() []types.Instrument {
	return append([]types.Instrument(nil), e.instruments...)
}

// ---- Ingestion ----

// Ingest records a batch of quotes and returns how many were accepted.
// Rejected quotes are logged and counted; they never stop the engine.
func (e *Engine) Ingest(quotes []types.Quote) int {
	accepted := 0
	for _, q := range quotes {
		at := q.Timestamp
		if at.IsZero() {
			at = e.now()
		}
		if err := e.store.OnTick(q.InstrumentID, q.Price, q.Volume, at); err != nil {
			metrics.TicksIngested.WithLabelValues(q.InstrumentID, "rejected").Inc()
			e.log.Warn("tick_rejected",
				logger.String("instrument", q.InstrumentID),
				logger.Float64("price", q.Price),
				logger.Err(err),
			)
			continue
		}
		metrics.TicksIngested.WithLabelValues(q.InstrumentID, "accepted").Inc()
		accepted++
	}
	if accepted > 0 {
		e.feedConnected.Store(true)
	}
	return accepted
}

// ReportFeedError surfaces a failed poll as an ERROR signal. The engine
// keeps running on the prices it already has.
func (e *Engine) ReportFeedError(err error) {
	e.feedConnected.Store(false)
	e.log.Warn("feed_poll_failed", logger.Err(err))
	e.emit(types.NewAlert(types.KindError, types.SystemPair, SourcePriceFeed, feedFailureMessage, e.now()))
}

// ---- Lifecycle ----

// Start arms the engine. It fails while an emergency stop is latched.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.risk.Halted() {
		return ErrEmergencyHalted
	}
	if !e.running {
		e.running = true
		e.log.Info("engine_started", logger.String("mode", string(e.mode())))
	}
	e.updateGauges()
	return nil
}

// Stop disarms the engine after the current cycle, if any.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setStopped("requested")
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) setStopped(reason string) {
	if e.running {
		e.running = false
		e.log.Info("engine_stopped", logger.String("reason", reason))
	}
	e.updateGauges()
}

// EmergencyStop latches the halt flag, stops the engine and closes every
// open position at the last known price.
func (e *Engine) EmergencyStop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.now()
	e.risk.Halt()
	e.setStopped("emergency")

	for _, pos := range e.ledger.Positions() {
		inst := e.byID[pos.InstrumentID]
		price, ok := e.store.LastPrice(pos.InstrumentID)
		if !ok {
			price = pos.EntryPrice
		}
		sig := types.NewSell(inst.Symbol, risk.SourceEmergencyStop, emergencyCloseReason, 0, 0, at)
		e.execute(inst, sig, price, at)
	}
	e.emit(types.NewAlert(types.KindError, types.SystemPair, risk.SourceEmergencyStop, emergencyMessage, at))
	e.log.Warn("emergency_stop")
	e.updateGauges()
}

// ResetEmergency clears the latched halt. The engine stays stopped.
func (e *Engine) ResetEmergency() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.risk.ClearHalt()
	e.log.Info("emergency_reset")
	e.updateGauges()
}

// ResetDailyPnL starts a new trading day.
func (e *Engine) ResetDailyPnL() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.risk.ResetDaily()
	e.log.Info("daily_pnl_reset")
	e.updateGauges()
}

// UpdateConfig swaps the strategy parameters. Refused while running.
func (e *Engine) UpdateConfig(cfg config.StrategyConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrEngineRunning
	}
	gen, err := strategy.NewGenerator(cfg)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.gen = gen
	e.risk.SetConfig(cfg)
	e.ledger.SetConfig(cfg)
	e.log.Info("config_updated", logger.Bool("paper_trading", cfg.PaperTrading))
	return nil
}

func (e *Engine) Config() config.StrategyConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// ---- Cycle ----

// Cycle runs one evaluation pass. It does nothing while stopped. The gate
// runs first; if it trips, the reason is recorded and the engine stops
// before any instrument is evaluated. Open positions are checked for exits
// either way.
func (e *Engine) Cycle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	start := time.Now()
	at := e.now()
	e.lastCycle = at

	if sig, ok := e.risk.Gate(at); !ok {
		e.emit(sig)
		e.log.Warn("risk_gate_tripped",
			logger.String("source", sig.Source),
			logger.String("reason", sig.Message),
		)
		e.setStopped("risk limit")
	} else {
		for _, inst := range e.instruments {
			e.evaluate(inst, at)
		}
	}
	e.checkExits(at)
	e.updateGauges()
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
}

func (e *Engine) evaluate(inst types.Instrument, at time.Time) {
	price, ok := e.store.LastPrice(inst.ID)
	if !ok {
		return
	}
	prices, volumes := e.store.Snapshot(inst.ID)
	ev, ok := e.gen.Evaluate(inst, prices, volumes, price, at)
	if !ok {
		return
	}
	e.latest[inst.ID] = ev
	if ev.Consensus == nil {
		return
	}
	sig := *ev.Consensus
	e.emit(sig)
	if _, directional := sig.Kind.Side(); directional && !e.cfg.ConfirmationRequired {
		e.execute(inst, sig, price, at)
	}
}

func (e *Engine) checkExits(at time.Time) {
	for _, snapshot := range e.ledger.Positions() {
		price, ok := e.store.LastPrice(snapshot.InstrumentID)
		if !ok {
			continue
		}
		pos, ok := e.ledger.Mutable(snapshot.InstrumentID)
		if !ok {
			continue
		}
		reason, exit := e.risk.CheckExit(pos, price)
		if !exit {
			continue
		}
		inst := e.byID[snapshot.InstrumentID]
		sig := types.NewSell(inst.Symbol, risk.SourceRiskManagement, reason, 0, 0, at)
		e.emit(sig)
		e.execute(inst, sig, price, at)
	}
}

// ---- Execution ----

// ExecuteManual trades instrumentID at the last price. It serves the
// confirmation flow: a BUY must pass the risk gate and uses the latest
// consensus confidence for the instrument, or 1 when there is none.
func (e *Engine) ExecuteManual(instrumentID string, side types.Side) (types.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.byID[instrumentID]
	if !ok {
		return types.Trade{}, fmt.Errorf("%s: %w", instrumentID, strategy.ErrUnknownInstrument)
	}
	price, ok := e.store.LastPrice(instrumentID)
	if !ok {
		return types.Trade{}, fmt.Errorf("%s: %w", instrumentID, ErrNoPrice)
	}
	at := e.now()

	var sig types.Signal
	switch side {
	case types.Buy:
		if gate, ok := e.risk.Gate(at); !ok {
			return types.Trade{}, fmt.Errorf("%w: %s", ErrTradingHalted, gate.Message)
		}
		confidence := 1.0
		if ev, ok := e.latest[instrumentID]; ok && ev.Consensus != nil && ev.Consensus.Kind == types.KindBuy {
			confidence, _ = ev.Consensus.Confidence()
		}
		sig = types.NewBuy(inst.Symbol, manualReason, manualReason, 0, confidence, at)
	case types.Sell:
		sig = types.NewSell(inst.Symbol, manualReason, manualReason, 0, 1, at)
	default:
		return types.Trade{}, fmt.Errorf("%w: unknown side %q", ErrTradeRejected, side)
	}

	trade, ok := e.execute(inst, sig, price, at)
	if !ok {
		return types.Trade{}, fmt.Errorf("%s %s: %w", side, inst.Symbol, ErrTradeRejected)
	}
	e.updateGauges()
	return trade, nil
}

// execute applies sig through the ledger and propagates the result to the
// risk state, the metrics and the sink. Rejections are silent.
func (e *Engine) execute(inst types.Instrument, sig types.Signal, price float64, at time.Time) (types.Trade, bool) {
	trade, ok := e.ledger.Execute(inst, sig, price, at)
	if !ok {
		return types.Trade{}, false
	}
	fields := []logger.Field{
		logger.String("side", string(trade.Side)),
		logger.String("pair", trade.Pair),
		logger.Float64("price", trade.Price),
		logger.Float64("amount", trade.Amount),
		logger.String("reason", trade.Reason),
	}
	if trade.Profit != nil {
		e.risk.RecordClose(*trade.Profit)
		fields = append(fields, logger.Float64("profit", *trade.Profit))
	}
	e.log.Info("trade_executed", fields...)
	metrics.TradesExecuted.WithLabelValues(string(trade.Side), string(trade.Mode)).Inc()
	e.sink.OnTrade(trade)

	if m, ok := performance.Compute(e.ledger.Trades(), e.risk.State().MaxDrawdownObserved, e.perf); ok {
		e.perf = m
		e.sink.OnMetricsUpdate(m)
	}
	return trade, true
}

func (e *Engine) emit(s types.Signal) {
	e.signals.add(s)
	metrics.SignalsEmitted.WithLabelValues(s.Pair, string(s.Kind)).Inc()
	e.sink.OnSignal(s)
}

func (e *Engine) mode() types.Mode {
	if e.cfg.PaperTrading {
		return types.Paper
	}
	return types.Live
}

func (e *Engine) updateGauges() {
	st := e.risk.State()
	metrics.EngineRunning.Set(metrics.BoolGauge(e.running))
	metrics.EmergencyHalted.Set(metrics.BoolGauge(st.EmergencyHalted))
	metrics.PositionsOpen.Set(float64(e.ledger.OpenCount()))
	metrics.DailyPnL.Set(st.DailyPnL)
	metrics.MaxDrawdown.Set(st.MaxDrawdownObserved)
	metrics.EquityGauge.Set(st.Equity)
	metrics.WinRate.Set(e.perf.WinRate)
}

// ---- Snapshots ----

// Signals returns up to limit recent signals, newest first.
func (e *Engine) Signals(limit int) []types.Signal { return e.signals.list(limit) }

// Trades returns the ledger in chronological order.
func (e *Engine) Trades() []types.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Trades()
}

func (e *Engine) Positions() []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Positions()
}

func (e *Engine) Metrics() types.PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perf
}

func (e *Engine) RiskState() types.RiskState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.risk.State()
}

// Indicators returns the indicator set from the latest evaluation of id.
func (e *Engine) Indicators(id string) (strategy.IndicatorSet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.latest[id]
	if !ok {
		return strategy.IndicatorSet{}, false
	}
	return ev.Indicators, true
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.risk.State()
	return Status{
		Running:         e.running,
		FeedConnected:   e.feedConnected.Load(),
		EmergencyHalted: st.EmergencyHalted,
		Mode:            e.mode(),
		OpenPositions:   e.ledger.OpenCount(),
		Instruments:     len(e.instruments),
		LastCycle:       e.lastCycle,
		Risk:            st,
	}
}
