package risk

import (
	"math"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
)

// MinPositionSize is the floor applied to every buy.
const MinPositionSize = 0.001

// PositionSize scales the base trade amount by the signal confidence and
// caps it by the maximum position, less what is already held. The result is
// never below MinPositionSize.
func PositionSize(cfg config.StrategyConfig, confidence, existing float64) float64 {
	size := cfg.TradeAmount * confidence
	size = math.Min(size, cfg.MaxPositionSize)
	if existing > 0 {
		size = math.Min(size, cfg.MaxPositionSize-existing)
	}
	return math.Max(size, MinPositionSize)
}

// StopLevels returns the stop-loss and take-profit prices for a long entry.
func StopLevels(cfg config.StrategyConfig, entry float64) (stopLoss, takeProfit float64) {
	return entry * (1 - cfg.StopLossPercent/100), entry * (1 + cfg.TakeProfitPercent/100)
}

// TrailingLevel is the trailing stop price implied by price.
func TrailingLevel(price, trailingPct float64) float64 {
	return price * (1 - trailingPct/100)
}

// Fees is zero in paper mode and 0.1 % of notional otherwise.
func Fees(cfg config.StrategyConfig, amount, price float64) float64 {
	if cfg.PaperTrading {
		return 0
	}
	return amount * price * FeeRate
}

// FeeRate is the estimated live taker fee.
const FeeRate = 0.001
