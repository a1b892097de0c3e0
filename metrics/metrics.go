package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_ticks_total",
			Help: "Price ticks received, by instrument and outcome (accepted/rejected).",
		},
		[]string{"instrument", "status"},
	)

	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_signals_total",
			Help: "Signals recorded, by pair and kind.",
		},
		[]string{"pair", "kind"},
	)

	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_trades_total",
			Help: "Trades appended to the ledger, by side and mode.",
		},
		[]string{"side", "mode"},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_positions_open",
			Help: "Current number of open positions.",
		},
	)

	DailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_daily_pnl",
			Help: "Realised profit and loss since the last daily reset.",
		},
	)

	MaxDrawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_max_drawdown_percent",
			Help: "Largest peak-to-trough equity decline observed.",
		},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_equity",
			Help: "Starting capital plus realised profit.",
		},
	)

	WinRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_win_rate_percent",
			Help: "Share of closed trades with a positive result.",
		},
	)

	EngineRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_engine_running",
			Help: "1 while the engine is accepting evaluation cycles.",
		},
	)

	EmergencyHalted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradebot_emergency_halted",
			Help: "1 once the emergency stop has latched.",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradebot_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	SinkDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_sink_dropped_total",
			Help: "Events dropped because a sink buffer was full, by event type.",
		},
		[]string{"event"},
	)

	SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_sink_errors_total",
			Help: "Publish failures, by sink.",
		},
		[]string{"sink"},
	)

	FeedErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_feed_errors_total",
			Help: "Failed feed polls, by feed.",
		},
		[]string{"feed"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksIngested, SignalsEmitted, TradesExecuted,
		PositionsOpen, DailyPnL, MaxDrawdown, EquityGauge, WinRate,
		EngineRunning, EmergencyHalted, CycleDuration,
		SinkDropped, SinkErrors, FeedErrors,
	)
}

// BoolGauge converts b to 0/1 for gauges.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
