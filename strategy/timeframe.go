package strategy

import (
	"github.com/evdnx/goti"
	"github.com/markcheno/go-talib"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// timeframeFactor is how many ticks make one higher-timeframe bar.
const timeframeFactor = 5

const (
	htfAligned   = " [higher timeframe aligned]"
	htfDiverging = " [higher timeframe diverging]"
)

// HigherTimeframe is the trend read on the down-sampled series. Trend
// follows the EMA pair; when the EMAs are level, an HMA crossover on the
// coarse bars decides.
type HigherTimeframe struct {
	FastEMA      float64 `json:"fast_ema"`
	SlowEMA      float64 `json:"slow_ema"`
	HMACrossover int     `json:"hma_crossover"` // 1 bullish, -1 bearish, 0 none
	Trend        int     `json:"trend"`         // 1 up, -1 down, 0 flat
}

// bar is one higher-timeframe candle built from consecutive ticks.
type bar struct {
	high, low, close float64
	ticks            int
}

// downsample keeps every factor-th price counting back from the newest.
func downsample(prices []float64, factor int) []float64 {
	n := (len(prices) + factor - 1) / factor
	out := make([]float64, n)
	for i, j := len(prices)-1, n-1; j >= 0; i, j = i-factor, j-1 {
		out[j] = prices[i]
	}
	return out
}

// coarseBars groups prices into candles aligned with downsample: each bar
// closes on a price downsample keeps. The oldest bar may be partial.
func coarseBars(prices []float64, factor int) []bar {
	n := (len(prices) + factor - 1) / factor
	out := make([]bar, n)
	for end, j := len(prices), n-1; j >= 0; end, j = end-factor, j-1 {
		start := end - factor
		if start < 0 {
			start = 0
		}
		b := bar{high: prices[start], low: prices[start], close: prices[end-1], ticks: end - start}
		for _, p := range prices[start:end] {
			if p > b.high {
				b.high = p
			}
			if p < b.low {
				b.low = p
			}
		}
		out[j] = b
	}
	return out
}

// hmaCrossover replays the bars through a goti suite and reports the HMA
// crossover on the newest bar. Tick count stands in for volume.
func hmaCrossover(bars []bar) int {
	suite, err := goti.NewIndicatorSuiteWithConfig(goti.DefaultConfig())
	if err != nil {
		return 0
	}
	for _, b := range bars {
		if err := suite.Add(b.high, b.low, b.close, float64(b.ticks)); err != nil {
			return 0
		}
	}
	hma := suite.GetHMA()
	if ok, err := hma.IsBullishCrossover(); err == nil && ok {
		return 1
	}
	if ok, err := hma.IsBearishCrossover(); err == nil && ok {
		return -1
	}
	return 0
}

func higherTimeframe(prices []float64, fast, slow int) (HigherTimeframe, bool) {
	coarse := downsample(prices, timeframeFactor)
	if len(coarse) < slow || fast <= 1 || slow <= 1 {
		return HigherTimeframe{}, false
	}
	f := talib.Ema(coarse, fast)
	s := talib.Ema(coarse, slow)
	h := HigherTimeframe{
		FastEMA:      f[len(f)-1],
		SlowEMA:      s[len(s)-1],
		HMACrossover: hmaCrossover(coarseBars(prices, timeframeFactor)),
	}
	h.Trend = trend(h.FastEMA, h.SlowEMA, h.HMACrossover)
	return h, true
}

func trend(fastEMA, slowEMA float64, crossover int) int {
	switch {
	case fastEMA > slowEMA:
		return 1
	case fastEMA < slowEMA:
		return -1
	}
	return crossover
}

// annotate tags a consensus message with the higher timeframe's view.
// The decision itself is untouched.
func annotate(msg string, kind types.SignalKind, h HigherTimeframe) string {
	if h.Trend == 0 {
		return msg
	}
	want := 1
	if kind == types.KindSell {
		want = -1
	}
	if h.Trend == want {
		return msg + htfAligned
	}
	return msg + htfDiverging
}
