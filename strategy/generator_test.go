package strategy

import (
	"strings"
	"testing"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/indicators"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// ---------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------

var eth = types.Instrument{ID: "ethereum", Symbol: "ETH", FeedID: "ethereum"}

// buildConfig returns the stock parameters with the higher-timeframe
// annotation switched off so messages are predictable.
func buildConfig() config.StrategyConfig {
	cfg := config.DefaultStrategy()
	cfg.MultiTimeframe = false
	return cfg
}

func buildGenerator(t *testing.T, cfg config.StrategyConfig) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	return g
}

func ptr[T any](v T) *T { return &v }

func bands(lower, upper float64) *indicators.Bands {
	return &indicators.Bands{Lower: lower, Middle: (lower + upper) / 2, Upper: upper}
}

func macd(line, signal float64) *indicators.MACDResult {
	return &indicators.MACDResult{Line: line, Signal: signal, Histogram: line - signal}
}

func fib(hi, lo float64) *indicators.FibonacciResult {
	f, _ := indicators.FibonacciLevels([]float64{hi, lo}, 2)
	return &f
}

func highVolume() *indicators.VolumeResult {
	return &indicators.VolumeResult{Current: 300, Average: 100, Ratio: 3, IsHighVolume: true}
}

// choppy alternates between 100 and 101.
func choppy(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i%2)
	}
	return out
}

// ---------------------------------------------------------------------
// Scoring
// ---------------------------------------------------------------------

func TestScoreConsensus(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	now := time.Now()

	cases := []struct {
		name       string
		price      float64
		set        IndicatorSet
		wantKind   types.SignalKind
		wantSource string
		wantMsg    string
		wantConf   float64
	}{
		{
			name:       "bollinger and macd buy",
			price:      90,
			set:        IndicatorSet{Bands: bands(95, 110), MACD: macd(1, 0.5), RSI: ptr(50.0)},
			wantKind:   types.KindBuy,
			wantSource: SourceBollinger,
			wantMsg:    "Price at lower band - oversold condition",
			wantConf:   0.55,
		},
		{
			name:       "bollinger alone is not enough",
			price:      90,
			set:        IndicatorSet{Bands: bands(95, 110)},
			wantKind:   types.KindHold,
			wantSource: SourceConsensus,
			wantMsg:    "Mixed signals - no clear direction",
			wantConf:   0.3,
		},
		{
			name:  "every indicator sells",
			price: 120,
			set: IndicatorSet{
				Bands:     bands(95, 110),
				MACD:      macd(-1, -0.5),
				RSI:       ptr(80.0),
				Fibonacci: fib(130, 100),
			},
			wantKind:   types.KindSell,
			wantSource: SourceBollinger,
			wantMsg:    "Price at upper band - overbought condition",
			wantConf:   0.9,
		},
		{
			name:       "rsi and macd buy",
			price:      100,
			set:        IndicatorSet{Bands: bands(95, 110), MACD: macd(2, 1), RSI: ptr(25.04)},
			wantKind:   types.KindBuy,
			wantSource: SourceMACD,
			wantMsg:    "Bullish momentum detected",
			wantConf:   0.45,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := g.score(eth, tc.set, tc.price, now)
			if ev.Consensus == nil {
				t.Fatal("expected a consensus signal")
			}
			c := *ev.Consensus
			if c.Kind != tc.wantKind || c.Source != tc.wantSource || c.Message != tc.wantMsg {
				t.Fatalf("got %s/%s/%q", c.Kind, c.Source, c.Message)
			}
			if conf, _ := c.Confidence(); !near(conf, tc.wantConf) {
				t.Fatalf("confidence = %v, want %v", conf, tc.wantConf)
			}
			if c.Pair != "ETH" {
				t.Fatalf("unexpected pair %q", c.Pair)
			}
		})
	}
}

func TestScoreNothingTriggered(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	ev := g.score(eth, IndicatorSet{Bands: bands(95, 110), MACD: macd(0, 0), RSI: ptr(50.0)}, 100, time.Now())
	if ev.Consensus != nil {
		t.Fatalf("expected no signal, got %+v", *ev.Consensus)
	}
	if len(ev.Contributions) != 0 || ev.Total != 0 {
		t.Fatalf("unexpected contributions %+v", ev.Contributions)
	}
}

func TestScoreRSIMessage(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	ev := g.score(eth, IndicatorSet{RSI: ptr(25.04)}, 100, time.Now())
	if len(ev.Contributions) != 1 || ev.Contributions[0].Message != "RSI oversold at 25.0" {
		t.Fatalf("unexpected contributions %+v", ev.Contributions)
	}
	ev = g.score(eth, IndicatorSet{RSI: ptr(71.26)}, 100, time.Now())
	if ev.Contributions[0].Message != "RSI overbought at 71.3" {
		t.Fatalf("unexpected message %q", ev.Contributions[0].Message)
	}
}

func TestScoreHighVolumeBoost(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	set := IndicatorSet{Bands: bands(95, 110), RSI: ptr(20.0), Volume: highVolume()}
	ev := g.score(eth, set, 90, time.Now())

	if !near(ev.Total, 0.6) {
		t.Fatalf("expected boosted total 0.6, got %v", ev.Total)
	}
	for _, c := range ev.Contributions {
		if !strings.HasSuffix(c.Message, " (High volume confirmation)") {
			t.Fatalf("missing volume note on %q", c.Message)
		}
	}
	if ev.Consensus.Message != "Price at lower band - oversold condition (High volume confirmation)" {
		t.Fatalf("unexpected consensus message %q", ev.Consensus.Message)
	}
}

// The representative keeps its source and strength but takes the consensus
// direction, even when it originally pointed the other way.
func TestScoreRepresentativeIsRelabelled(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	set := IndicatorSet{
		Bands:     bands(95, 110),
		MACD:      macd(1, 0.5),
		RSI:       ptr(20.0),
		Fibonacci: fib(200, 100),
		Volume:    highVolume(),
	}
	ev := g.score(eth, set, 120, time.Now())
	if ev.BuyCount != 3 || ev.SellCount != 1 {
		t.Fatalf("unexpected counters buy=%d sell=%d", ev.BuyCount, ev.SellCount)
	}
	c := ev.Consensus
	if c == nil || c.Kind != types.KindBuy || c.Source != SourceBollinger {
		t.Fatalf("unexpected consensus %+v", c)
	}
	if s, _ := c.Strength(); s != WeightBollinger {
		t.Fatalf("strength should stay %v, got %v", WeightBollinger, s)
	}
	if conf, _ := c.Confidence(); !near(conf, 0.36) {
		t.Fatalf("confidence = %v", conf)
	}
}

func TestStrongestFirstWinsTie(t *testing.T) {
	now := time.Now()
	a := types.NewBuy("ETH", "A", "", 0.2, 0, now)
	b := types.NewSell("ETH", "B", "", 0.2, 0, now)
	if got := strongest([]types.Signal{a, b}); got.Source != "A" {
		t.Fatalf("expected first signal on tie, got %s", got.Source)
	}
}

func TestConsensusThresholdIsStrict(t *testing.T) {
	if consensusKind(0.3) != types.KindHold || consensusKind(-0.3) != types.KindHold {
		t.Fatal("a total of exactly ±0.3 must hold")
	}
	if consensusKind(0.31) != types.KindBuy || consensusKind(-0.31) != types.KindSell {
		t.Fatal("totals beyond the threshold must trade")
	}
}

// ---------------------------------------------------------------------
// End to end on price series
// ---------------------------------------------------------------------

func TestEvaluateRequiresHistory(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	if _, ok := g.Evaluate(eth, choppy(25), nil, 100, time.Now()); ok {
		t.Fatal("25 samples are below the MACD slow period")
	}
	ev, ok := g.Evaluate(eth, choppy(26), nil, 100, time.Now())
	if !ok {
		t.Fatal("26 samples should be evaluated")
	}
	if ev.Indicators.Fibonacci != nil || ev.Indicators.Volume != nil {
		t.Fatal("fibonacci and volume need more history")
	}
	if _, ok := g.Evaluate(eth, choppy(40), nil, 0, time.Now()); ok {
		t.Fatal("an unknown price must not be evaluated")
	}
}

func TestEvaluateSharpDropBuysAtLowerBand(t *testing.T) {
	g := buildGenerator(t, buildConfig())
	prices := append(choppy(49), 90)

	ev, ok := g.Evaluate(eth, prices, nil, 90, time.Now())
	if !ok {
		t.Fatal("expected an evaluation")
	}
	if ev.Indicators.Bands == nil || 90 > ev.Indicators.Bands.Lower {
		t.Fatalf("price should sit below the lower band: %+v", ev.Indicators.Bands)
	}
	found := false
	for _, c := range ev.Contributions {
		if c.Source == SourceBollinger {
			found = true
			if c.Kind != types.KindBuy {
				t.Fatalf("expected a bollinger BUY, got %s", c.Kind)
			}
			if s, _ := c.Strength(); s != 0.30 {
				t.Fatalf("unexpected strength %v", s)
			}
		}
	}
	if !found {
		t.Fatal("missing bollinger contribution")
	}
	if ev.Consensus == nil {
		t.Fatal("a triggered indicator always yields a consensus signal")
	}
}

func TestEvaluateHigherTimeframe(t *testing.T) {
	cfg := config.DefaultStrategy()
	g := buildGenerator(t, cfg)

	rising := make([]float64, 200)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	ev, _ := g.Evaluate(eth, rising, nil, rising[199], time.Now())
	h := ev.Indicators.HigherTimeframe
	if h == nil || h.Trend != 1 {
		t.Fatalf("expected an up-trending higher timeframe, got %+v", h)
	}

	ev, _ = g.Evaluate(eth, rising[:100], nil, rising[99], time.Now())
	if ev.Indicators.HigherTimeframe != nil {
		t.Fatal("100 ticks are too few for the slow EMA on the coarse series")
	}
}

func TestAnnotate(t *testing.T) {
	up := HigherTimeframe{Trend: 1}
	if got := annotate("x", types.KindBuy, up); got != "x [higher timeframe aligned]" {
		t.Fatalf("unexpected %q", got)
	}
	if got := annotate("x", types.KindSell, up); got != "x [higher timeframe diverging]" {
		t.Fatalf("unexpected %q", got)
	}
	if got := annotate("x", types.KindSell, HigherTimeframe{}); got != "x" {
		t.Fatalf("flat trend must not annotate, got %q", got)
	}
}

func TestDownsampleKeepsNewest(t *testing.T) {
	got := downsample([]float64{1, 2, 3, 4, 5, 6, 7}, 3)
	want := []float64{1, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCoarseBarsMatchDownsample(t *testing.T) {
	prices := []float64{5, 1, 9, 2, 3, 4, 8}
	bars := coarseBars(prices, 3)
	closes := downsample(prices, 3)
	if len(bars) != len(closes) {
		t.Fatalf("got %d bars for %d closes", len(bars), len(closes))
	}
	for i, b := range bars {
		if b.close != closes[i] {
			t.Fatalf("bar %d closes at %v, want %v", i, b.close, closes[i])
		}
	}
	// 5 | 1 9 2 | 3 4 8
	if bars[0].ticks != 1 || bars[1].high != 9 || bars[1].low != 1 || bars[2].low != 3 || bars[2].ticks != 3 {
		t.Fatalf("unexpected bars %+v", bars)
	}
}

func TestHMACrossoverFollowsReversal(t *testing.T) {
	var falling, rising []float64
	for i := 0; i < 150; i++ {
		falling = append(falling, 200-float64(i)*0.5)
		rising = append(rising, 100+float64(i)*0.5)
	}
	up := append(append([]float64{}, falling...), 190, 191, 192, 193, 194)
	if got := hmaCrossover(coarseBars(up, timeframeFactor)); got == -1 {
		t.Fatal("a sharp rebound must not read as a bearish crossover")
	}
	down := append(append([]float64{}, rising...), 80, 79, 78, 77, 76)
	if got := hmaCrossover(coarseBars(down, timeframeFactor)); got == 1 {
		t.Fatal("a sharp collapse must not read as a bullish crossover")
	}
	if got := hmaCrossover(nil); got != 0 {
		t.Fatalf("no bars means no crossover, got %d", got)
	}
}

func TestTrendPrefersEMAsOverHMA(t *testing.T) {
	cases := []struct {
		fast, slow float64
		cross, want int
	}{
		{101, 100, -1, 1},
		{99, 100, 1, -1},
		{100, 100, 1, 1},
		{100, 100, -1, -1},
		{100, 100, 0, 0},
	}
	for _, c := range cases {
		if got := trend(c.fast, c.slow, c.cross); got != c.want {
			t.Fatalf("trend(%v, %v, %d) = %d, want %d", c.fast, c.slow, c.cross, got, c.want)
		}
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
