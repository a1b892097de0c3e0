// Package indicators holds the pure technical-indicator functions used by
// the signal generator. Every function takes a series ordered oldest to
// newest and reports ok=false instead of returning NaN when the history is
// too short or the result is undefined.
package indicators

import "math"

// FibonacciRatios are the retracement ratios measured from the high.
var FibonacciRatios = [...]float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

const (
	// FibonacciLookback is the window used for the swing high/low.
	FibonacciLookback = 50
	// VolumeLookback is the averaging window for volume analysis.
	VolumeLookback = 20
	// LowVolumeRatio marks thin trading.
	LowVolumeRatio = 0.5
	// MACDSignalPeriod is the EMA length of the signal line.
	MACDSignalPeriod = 9
)

type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

type MACDResult struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type StochasticResult struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// FibonacciResult holds the retracement levels; Levels[i] matches
// FibonacciRatios[i].
type FibonacciResult struct {
	High   float64                        `json:"high"`
	Low    float64                        `json:"low"`
	Levels [len(FibonacciRatios)]float64 `json:"levels"`
}

// Level returns the price at ratio, or false if ratio is not one of
// FibonacciRatios.
func (f FibonacciResult) Level(ratio float64) (float64, bool) {
	for i, r := range FibonacciRatios {
		if r == ratio {
			return f.Levels[i], true
		}
	}
	return 0, false
}

type VolumeResult struct {
	Current      float64 `json:"current"`
	Average      float64 `json:"average"`
	Ratio        float64 `json:"ratio"`
	IsHighVolume bool    `json:"is_high_volume"`
	IsLowVolume  bool    `json:"is_low_volume"`
}

func tail(series []float64, n int) []float64 {
	return series[len(series)-n:]
}

// SMA is the mean of the last period values.
func SMA(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range tail(series, period) {
		sum += v
	}
	return sum / float64(period), true
}

// StdDev is the population standard deviation of the last period values
// about mean.
func StdDev(series []float64, period int, mean float64) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	acc := 0.0
	for _, v := range tail(series, period) {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(period)), true
}

// BollingerBands returns mean ± k standard deviations over period.
func BollingerBands(series []float64, period int, k float64) (Bands, bool) {
	m, ok := SMA(series, period)
	if !ok {
		return Bands{}, false
	}
	sd, _ := StdDev(series, period, m)
	return Bands{Upper: m + k*sd, Middle: m, Lower: m - k*sd}, true
}

// EMA is seeded with the SMA of the first period values and then smoothed
// over the rest of the series.
func EMA(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	ema, _ := SMA(series[:period], period)
	mult := 2 / float64(period+1)
	for _, v := range series[period:] {
		ema = (v-ema)*mult + ema
	}
	return ema, true
}

func macdLine(series []float64, fast, slow int) (float64, bool) {
	f, ok := EMA(series, fast)
	if !ok {
		return 0, false
	}
	s, ok := EMA(series, slow)
	if !ok {
		return 0, false
	}
	return f - s, true
}

// MACD computes the fast/slow EMA difference. The signal line is an EMA
// over a synthetic history made of the current line followed by the line
// recomputed on the trailing slow+1 .. slow+9 values. When the series is
// too short for all nine windows the signal falls back to 0.9 × line.
func MACD(series []float64, fast, slow int) (MACDResult, bool) {
	if len(series) < slow {
		return MACDResult{}, false
	}
	line, ok := macdLine(series, fast, slow)
	if !ok {
		return MACDResult{}, false
	}

	hist := make([]float64, 0, MACDSignalPeriod+1)
	hist = append(hist, line)
	for i := 1; i <= MACDSignalPeriod; i++ {
		n := slow + i
		if len(series) < n {
			break
		}
		if m, ok := macdLine(tail(series, n), fast, slow); ok {
			hist = append(hist, m)
		}
	}

	signal := line * 0.9
	if len(hist) == MACDSignalPeriod+1 {
		if s, ok := EMA(hist, MACDSignalPeriod); ok {
			signal = s
		}
	}
	return MACDResult{Line: line, Signal: signal, Histogram: line - signal}, true
}

// RSI uses simple averages of the gains and losses over the last period
// deltas. A series without losses reads 100.
func RSI(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period+1 {
		return 0, false
	}
	gains, losses := 0.0, 0.0
	for i := len(series) - period; i < len(series); i++ {
		ch := series[i] - series[i-1]
		if ch > 0 {
			gains += ch
		} else {
			losses -= ch
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

func percentK(price float64, highs, lows []float64) (float64, bool) {
	hh, ll := highs[0], lows[0]
	for _, h := range highs {
		hh = math.Max(hh, h)
	}
	for _, l := range lows {
		ll = math.Min(ll, l)
	}
	if hh == ll {
		return 0, false
	}
	return (price - ll) / (hh - ll) * 100, true
}

// Stochastic computes %K over the last k highs/lows and %D as the mean of
// the d most recent %K values on shifted windows. Highs and lows must be
// aligned with prices.
func Stochastic(prices, highs, lows []float64, k, d int) (StochasticResult, bool) {
	n := len(prices)
	if k <= 0 || d <= 0 || len(highs) != n || len(lows) != n || n < k+d-1 {
		return StochasticResult{}, false
	}
	var out StochasticResult
	sum := 0.0
	for i := 0; i < d; i++ {
		end := n - i
		v, ok := percentK(prices[end-1], highs[end-k:end], lows[end-k:end])
		if !ok {
			return StochasticResult{}, false
		}
		if i == 0 {
			out.K = v
		}
		sum += v
	}
	out.D = sum / float64(d)
	return out, true
}

// FibonacciLevels measures retracements from the high of the last period
// values toward the low.
func FibonacciLevels(series []float64, period int) (FibonacciResult, bool) {
	if period <= 0 || len(series) < period {
		return FibonacciResult{}, false
	}
	w := tail(series, period)
	hi, lo := w[0], w[0]
	for _, v := range w {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	out := FibonacciResult{High: hi, Low: lo}
	diff := hi - lo
	for i, r := range FibonacciRatios {
		out.Levels[i] = hi - diff*r
	}
	out.Levels[len(FibonacciRatios)-1] = lo
	return out, true
}

// VolumeAnalysis compares the latest volume with its lookback average.
func VolumeAnalysis(volumes []float64, lookback int, threshold float64) (VolumeResult, bool) {
	avg, ok := SMA(volumes, lookback)
	if !ok || avg == 0 {
		return VolumeResult{}, false
	}
	cur := volumes[len(volumes)-1]
	ratio := cur / avg
	return VolumeResult{
		Current:      cur,
		Average:      avg,
		Ratio:        ratio,
		IsHighVolume: ratio >= threshold,
		IsLowVolume:  ratio <= LowVolumeRatio,
	}, true
}
