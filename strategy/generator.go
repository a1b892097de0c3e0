package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/indicators"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Indicator weights. Buys add, sells subtract.
const (
	WeightBollinger = 0.30
	WeightMACD      = 0.25
	WeightRSI       = 0.20
	WeightFibonacci = 0.15

	// HighVolumeBoost scales the total when volume confirms.
	HighVolumeBoost = 1.2
	// ConsensusThreshold must be exceeded (strictly) for BUY or SELL.
	ConsensusThreshold = 0.3
)

// Indicator and message names, as they appear on signals.
const (
	SourceBollinger = "Bollinger Bands"
	SourceMACD      = "MACD"
	SourceRSI       = "RSI"
	SourceFibonacci = "Fibonacci"
	SourceConsensus = "Consensus"

	highVolumeNote = " (High volume confirmation)"
	mixedSignals   = "Mixed signals - no clear direction"
)

// IndicatorSet is the transient result of one evaluation. Nil members were
// not computable on the available history.
type IndicatorSet struct {
	Bands           *indicators.Bands            `json:"bollinger,omitempty"`
	MACD            *indicators.MACDResult       `json:"macd,omitempty"`
	RSI             *float64                     `json:"rsi,omitempty"`
	Stochastic      *indicators.StochasticResult `json:"stochastic,omitempty"`
	Fibonacci       *indicators.FibonacciResult  `json:"fibonacci,omitempty"`
	Volume          *indicators.VolumeResult     `json:"volume,omitempty"`
	HigherTimeframe *HigherTimeframe             `json:"higher_timeframe,omitempty"`
}

// Evaluation is everything the generator concluded for one instrument.
type Evaluation struct {
	Instrument types.Instrument
	Price      float64
	Indicators IndicatorSet
	// Contributions are the per-indicator BUY/SELL signals that fired.
	Contributions []types.Signal
	Total         float64
	BuyCount      int
	SellCount     int
	// Consensus is nil when no indicator fired.
	Consensus *types.Signal
}

// Generator turns a price history into a consensus signal.
type Generator struct {
	cfg config.StrategyConfig
}

// NewGenerator validates cfg and returns a generator bound to it.
func NewGenerator(cfg config.StrategyConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

// Config returns the parameters in use.
func (g *Generator) Config() config.StrategyConfig { return g.cfg }

// Evaluate scores the instrument at price. It returns false when the history
// is shorter than the configured minimum or price is not positive.
func (g *Generator) Evaluate(inst types.Instrument, prices, volumes []float64, price float64, at time.Time) (Evaluation, bool) {
	if len(prices) < g.cfg.MinHistory() || price <= 0 {
		return Evaluation{}, false
	}
	return g.score(inst, g.compute(prices, volumes), price, at), true
}

// score applies the indicator weights and the consensus rule to ind.
func (g *Generator) score(inst types.Instrument, ind IndicatorSet, price float64, at time.Time) Evaluation {
	ev := Evaluation{Instrument: inst, Price: price, Indicators: ind}

	contribute := func(kind types.SignalKind, source, msg string, weight float64) {
		if kind == types.KindBuy {
			ev.Total += weight
			ev.BuyCount++
			ev.Contributions = append(ev.Contributions, types.NewBuy(inst.Symbol, source, msg, weight, 0, at))
			return
		}
		ev.Total -= weight
		ev.SellCount++
		ev.Contributions = append(ev.Contributions, types.NewSell(inst.Symbol, source, msg, weight, 0, at))
	}

	if b := ind.Bands; b != nil {
		if price <= b.Lower {
			contribute(types.KindBuy, SourceBollinger, "Price at lower band - oversold condition", WeightBollinger)
		} else if price >= b.Upper {
			contribute(types.KindSell, SourceBollinger, "Price at upper band - overbought condition", WeightBollinger)
		}
	}
	if m := ind.MACD; m != nil {
		if m.Histogram > 0 && m.Line > m.Signal {
			contribute(types.KindBuy, SourceMACD, "Bullish momentum detected", WeightMACD)
		} else if m.Histogram < 0 && m.Line < m.Signal {
			contribute(types.KindSell, SourceMACD, "Bearish momentum detected", WeightMACD)
		}
	}
	if r := ind.RSI; r != nil {
		if *r <= g.cfg.RSIOversold {
			contribute(types.KindBuy, SourceRSI, fmt.Sprintf("RSI oversold at %.1f", *r), WeightRSI)
		} else if *r >= g.cfg.RSIOverbought {
			contribute(types.KindSell, SourceRSI, fmt.Sprintf("RSI overbought at %.1f", *r), WeightRSI)
		}
	}
	if f := ind.Fibonacci; f != nil {
		support, _ := f.Level(0.618)
		resistance, _ := f.Level(0.382)
		if price <= support {
			contribute(types.KindBuy, SourceFibonacci, "Price near 61.8% Fibonacci support", WeightFibonacci)
		} else if price >= resistance {
			contribute(types.KindSell, SourceFibonacci, "Price near 38.2% Fibonacci resistance", WeightFibonacci)
		}
	}

	if v := ind.Volume; v != nil && v.IsHighVolume {
		ev.Total *= HighVolumeBoost
		for i, s := range ev.Contributions {
			ev.Contributions[i] = s.WithMessage(s.Message + highVolumeNote)
		}
	}

	if len(ev.Contributions) == 0 {
		return ev
	}

	kind := consensusKind(ev.Total)
	confidence := math.Abs(ev.Total)
	var sig types.Signal
	if kind == types.KindHold {
		sig = types.NewHold(inst.Symbol, SourceConsensus, mixedSignals, confidence, at)
	} else {
		sig = strongest(ev.Contributions).WithConsensus(kind, confidence)
		if g.cfg.MultiTimeframe && ind.HigherTimeframe != nil {
			sig = sig.WithMessage(annotate(sig.Message, kind, *ind.HigherTimeframe))
		}
	}
	ev.Consensus = &sig
	return ev
}

func (g *Generator) compute(prices, volumes []float64) IndicatorSet {
	var set IndicatorSet
	if b, ok := indicators.BollingerBands(prices, g.cfg.BBPeriod, g.cfg.BBStdDev); ok {
		set.Bands = &b
	}
	if m, ok := indicators.MACD(prices, g.cfg.MACDFast, g.cfg.MACDSlow); ok {
		set.MACD = &m
	}
	if r, ok := indicators.RSI(prices, g.cfg.RSIPeriod); ok {
		set.RSI = &r
	}
	// Ticks carry no OHLC, so the price doubles as high and low.
	if s, ok := indicators.Stochastic(prices, prices, prices, g.cfg.StochK, g.cfg.StochD); ok {
		set.Stochastic = &s
	}
	if f, ok := indicators.FibonacciLevels(prices, indicators.FibonacciLookback); ok {
		set.Fibonacci = &f
	}
	if v, ok := indicators.VolumeAnalysis(volumes, indicators.VolumeLookback, g.cfg.VolumeThreshold); ok {
		set.Volume = &v
	}
	if g.cfg.MultiTimeframe {
		if h, ok := higherTimeframe(prices, g.cfg.MACDFast, g.cfg.MACDSlow); ok {
			set.HigherTimeframe = &h
		}
	}
	return set
}

func consensusKind(total float64) types.SignalKind {
	switch {
	case total > ConsensusThreshold:
		return types.KindBuy
	case total < -ConsensusThreshold:
		return types.KindSell
	}
	return types.KindHold
}

// strongest picks the contribution with the largest strength; the first one
// wins a tie.
func strongest(sigs []types.Signal) types.Signal {
	best := sigs[0]
	bestStrength, _ := best.Strength()
	for _, s := range sigs[1:] {
		if v, _ := s.Strength(); v > bestStrength {
			best, bestStrength = s, v
		}
	}
	return best
}
