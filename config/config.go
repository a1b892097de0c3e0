package config

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StrategyConfig holds every tunable parameter of the decision engine.
// A value is immutable once handed to the engine; changes go through
// Engine.UpdateConfig while the engine is stopped.
type StrategyConfig struct {
	// Indicator parameters
	BBPeriod        int     `yaml:"bb_period" json:"bb_period" default:"20" validate:"gt=1"`
	BBStdDev        float64 `yaml:"bb_std_dev" json:"bb_std_dev" default:"2" validate:"gt=0"`
	MACDFast        int     `yaml:"macd_fast" json:"macd_fast" default:"12" validate:"gt=0"`
	MACDSlow        int     `yaml:"macd_slow" json:"macd_slow" default:"26" validate:"gt=0"`
	RSIPeriod       int     `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gt=0"`
	RSIOverbought   float64 `yaml:"rsi_overbought" json:"rsi_overbought" default:"70" validate:"gte=0,lte=100"`
	RSIOversold     float64 `yaml:"rsi_oversold" json:"rsi_oversold" default:"30" validate:"gte=0,lte=100"`
	StochK          int     `yaml:"stoch_k" json:"stoch_k" default:"14" validate:"gt=0"`
	StochD          int     `yaml:"stoch_d" json:"stoch_d" default:"3" validate:"gt=0"`
	VolumeThreshold float64 `yaml:"volume_threshold" json:"volume_threshold" default:"1.5" validate:"gt=0"`

	// Risk parameters. Percentages are whole numbers (2 = 2 %).
	TradeAmount         float64 `yaml:"trade_amount" json:"trade_amount" default:"0.01" validate:"gt=0"`
	MaxPositionSize     float64 `yaml:"max_position_size" json:"max_position_size" default:"0.1" validate:"gt=0"`
	StopLossPercent     float64 `yaml:"stop_loss_percent" json:"stop_loss_percent" default:"2" validate:"gt=0,lt=100"`
	TakeProfitPercent   float64 `yaml:"take_profit_percent" json:"take_profit_percent" default:"5" validate:"gt=0"`
	MaxDailyLoss        float64 `yaml:"max_daily_loss" json:"max_daily_loss" default:"100" validate:"gte=0"`
	MaxDrawdownPercent  float64 `yaml:"max_drawdown_percent" json:"max_drawdown_percent" default:"10" validate:"gt=0,lte=100"`
	TrailingStopPercent float64 `yaml:"trailing_stop_percent" json:"trailing_stop_percent" default:"1" validate:"gte=0,lt=100"`
	StartingCapital     float64 `yaml:"starting_capital" json:"starting_capital" default:"10000" validate:"gt=0"`

	// Behaviour flags
	PaperTrading         bool `yaml:"paper_trading" json:"paper_trading" default:"true"`
	MultiTimeframe       bool `yaml:"multi_timeframe" json:"multi_timeframe" default:"true"`
	ConfirmationRequired bool `yaml:"confirmation_required" json:"confirmation_required" default:"true"`
	EmergencyStop        bool `yaml:"emergency_stop" json:"emergency_stop"`
}

// DefaultStrategy returns the stock parameter set taken from the
// struct's default tags.
func DefaultStrategy() StrategyConfig {
	var c StrategyConfig
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config: bad default tag: %v", err))
	}
	return c
}

// MinHistory is the number of samples an instrument needs before it is
// evaluated.
func (c StrategyConfig) MinHistory() int {
	return max(c.MACDSlow, c.RSIPeriod)
}

// Validate checks that all numeric fields are within sensible bounds.
// It returns the first encountered error so the caller can surface a clear
// configuration problem before any trading starts.
func (c *StrategyConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if c.RSIOverbought <= c.RSIOversold {
		return fmt.Errorf("RSIOverbought (%v) must be above RSIOversold (%v)", c.RSIOverbought, c.RSIOversold)
	}
	if c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("MACDFast (%d) must be below MACDSlow (%d)", c.MACDFast, c.MACDSlow)
	}
	return nil
}
