// Package performance derives summary statistics from the trade log.
package performance

import (
	"math"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Compute aggregates the closed trades in chronological order. With no
// closed trades it returns prev unchanged and false.
func Compute(trades []types.Trade, maxDrawdown float64, prev types.PerformanceMetrics) (types.PerformanceMetrics, bool) {
	var (
		returns          []float64
		wins, losses     int
		winSum, lossSum  float64
		totalProfit, pct float64
	)
	for _, t := range trades {
		if !t.Closed() {
			continue
		}
		p := *t.Profit
		r := 0.0
		if t.ProfitPercent != nil {
			r = *t.ProfitPercent
		}
		returns = append(returns, r)
		totalProfit += p
		pct += r
		switch {
		case p > 0:
			wins++
			winSum += p
		case p < 0:
			losses++
			lossSum += p
		}
	}
	n := len(returns)
	if n == 0 {
		return prev, false
	}

	m := types.PerformanceMetrics{
		TotalTrades:          n,
		WinningTrades:        wins,
		LosingTrades:         losses,
		WinRate:              float64(wins) / float64(n) * 100,
		TotalProfit:          totalProfit,
		AverageProfitPercent: pct / float64(n),
		MaxDrawdown:          maxDrawdown,
	}
	if wins > 0 {
		m.AverageWin = winSum / float64(wins)
	}
	if losses > 0 {
		m.AverageLoss = lossSum / float64(losses)
	}
	if m.AverageLoss != 0 {
		m.ProfitFactor = math.Abs(m.AverageWin / m.AverageLoss)
	}
	m.ReturnDispersionRatio = dispersionRatio(returns, m.AverageProfitPercent)
	return m, true
}

// dispersionRatio is the mean return over the population standard
// deviation of returns; zero when the returns do not vary.
func dispersionRatio(returns []float64, mean float64) float64 {
	v := 0.0
	for _, r := range returns {
		d := r - mean
		v += d * d
	}
	v /= float64(len(returns))
	if v == 0 {
		return 0
	}
	return mean / math.Sqrt(v)
}
