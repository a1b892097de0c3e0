package indicators

import (
	"math"
	"math/rand"
	"testing"

	"github.com/markcheno/go-talib"
)

const eps = 1e-9

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// randomWalk builds a deterministic positive price path.
func randomWalk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p += r.Float64()*2 - 1
		out[i] = p
	}
	return out
}

func linear(from, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func TestInsufficientHistoryIsAbsent(t *testing.T) {
	short := []float64{1, 2, 3}
	if _, ok := SMA(short, 4); ok {
		t.Fatal("SMA should be absent")
	}
	if _, ok := EMA(short, 4); ok {
		t.Fatal("EMA should be absent")
	}
	if _, ok := BollingerBands(short, 20, 2); ok {
		t.Fatal("bands should be absent")
	}
	if _, ok := MACD(linear(1, 1, 25), 12, 26); ok {
		t.Fatal("MACD should be absent below the slow period")
	}
	if _, ok := RSI(linear(1, 1, 14), 14); ok {
		t.Fatal("RSI needs period+1 values")
	}
	if _, ok := FibonacciLevels(linear(1, 1, 49), FibonacciLookback); ok {
		t.Fatal("fibonacci should be absent below its lookback")
	}
	if _, ok := VolumeAnalysis(linear(1, 1, 19), VolumeLookback, 1.5); ok {
		t.Fatal("volume analysis should be absent below its lookback")
	}
	if _, ok := SMA(nil, 0); ok {
		t.Fatal("non-positive period must be absent")
	}
}

// SMA, StdDev and EMA are checked against TA-Lib, which uses the same SMA
// seeding and population deviation.
func TestMatchesTALib(t *testing.T) {
	series := randomWalk(120, 7)

	for _, period := range []int{5, 14, 20, 26} {
		want := talib.Sma(series, period)
		got, ok := SMA(series, period)
		if !ok || !near(got, want[len(want)-1], 1e-8) {
			t.Fatalf("SMA(%d) = %v, talib %v", period, got, want[len(want)-1])
		}

		sd, _ := StdDev(series, period, got)
		wantSD := talib.StdDev(series, period, 1)
		if !near(sd, wantSD[len(wantSD)-1], 1e-6) {
			t.Fatalf("StdDev(%d) = %v, talib %v", period, sd, wantSD[len(wantSD)-1])
		}

		ema, _ := EMA(series, period)
		wantEMA := talib.Ema(series, period)
		if !near(ema, wantEMA[len(wantEMA)-1], 1e-8) {
			t.Fatalf("EMA(%d) = %v, talib %v", period, ema, wantEMA[len(wantEMA)-1])
		}
	}
}

func TestEMAOfConstantSeries(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		series[i] = 42.5
	}
	for _, period := range []int{1, 9, 12, 26, 60} {
		got, ok := EMA(series, period)
		if !ok || !near(got, 42.5, eps) {
			t.Fatalf("EMA(%d) of constant series = %v", period, got)
		}
	}
}

func TestBollingerOnDescendingSeries(t *testing.T) {
	// 110, 109, ..., 91
	series := linear(110, -1, 20)
	b, ok := BollingerBands(series, 20, 2)
	if !ok {
		t.Fatal("expected bands")
	}
	sigma := math.Sqrt(33.25) // population variance of 20 consecutive integers
	if !near(b.Middle, 100.5, eps) || !near(b.Lower, 100.5-2*sigma, 1e-9) || !near(b.Upper, 100.5+2*sigma, 1e-9) {
		t.Fatalf("unexpected bands %+v", b)
	}
	if series[len(series)-1] <= b.Lower {
		t.Fatal("a steady decline stays inside the lower band")
	}
}

func TestRSIAllGains(t *testing.T) {
	series := linear(100, 1, 15)
	got, ok := RSI(series, 14)
	if !ok || got != 100 {
		t.Fatalf("expected RSI 100, got %v (ok=%v)", got, ok)
	}
}

func TestRSIAllLosses(t *testing.T) {
	got, ok := RSI(linear(100, -1, 15), 14)
	if !ok || !near(got, 0, eps) {
		t.Fatalf("expected RSI 0, got %v", got)
	}
}

func TestRSIStaysInRange(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		series := randomWalk(80, seed)
		for end := 15; end <= len(series); end++ {
			v, ok := RSI(series[:end], 14)
			if !ok {
				t.Fatalf("seed %d end %d: RSI absent", seed, end)
			}
			if v < 0 || v > 100 || math.IsNaN(v) {
				t.Fatalf("seed %d end %d: RSI out of range %v", seed, end, v)
			}
		}
	}
}

func TestMACDSignalFallback(t *testing.T) {
	// 30 values cover the line but not all nine signal windows.
	series := linear(100, 0.5, 30)
	m, ok := MACD(series, 12, 26)
	if !ok {
		t.Fatal("expected MACD")
	}
	if !near(m.Signal, m.Line*0.9, eps) {
		t.Fatalf("expected fallback signal %v, got %v", m.Line*0.9, m.Signal)
	}
	if !near(m.Histogram, m.Line-m.Signal, eps) {
		t.Fatal("histogram must equal line minus signal")
	}
}

func TestMACDSignalFromSyntheticHistory(t *testing.T) {
	series := randomWalk(80, 3)
	m, ok := MACD(series, 12, 26)
	if !ok {
		t.Fatal("expected MACD")
	}

	hist := []float64{m.Line}
	for i := 1; i <= 9; i++ {
		w := series[len(series)-(26+i):]
		f, _ := EMA(w, 12)
		s, _ := EMA(w, 26)
		hist = append(hist, f-s)
	}
	want, _ := EMA(hist, 9)
	if !near(m.Signal, want, eps) {
		t.Fatalf("signal = %v, want %v", m.Signal, want)
	}
}

func TestMACDRisingSeriesIsPositive(t *testing.T) {
	m, _ := MACD(linear(100, 1, 60), 12, 26)
	if m.Line <= 0 {
		t.Fatalf("expected positive MACD line on a rising series, got %v", m.Line)
	}
}

func TestStochastic(t *testing.T) {
	up := linear(1, 1, 20)
	s, ok := Stochastic(up, up, up, 14, 3)
	if !ok || !near(s.K, 100, eps) || !near(s.D, 100, eps) {
		t.Fatalf("expected 100/100 on a rising series, got %+v ok=%v", s, ok)
	}

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 5
	}
	if _, ok := Stochastic(flat, flat, flat, 14, 3); ok {
		t.Fatal("zero range must be absent")
	}
	if _, ok := Stochastic(up[:15], up[:15], up[:15], 14, 3); ok {
		t.Fatal("needs k+d-1 samples")
	}
}

func TestFibonacciLevels(t *testing.T) {
	series := linear(100, 1, 50) // 100..149
	f, ok := FibonacciLevels(series, FibonacciLookback)
	if !ok {
		t.Fatal("expected levels")
	}
	if f.High != 149 || f.Low != 100 {
		t.Fatalf("unexpected range %v..%v", f.Low, f.High)
	}
	l618, _ := f.Level(0.618)
	if !near(l618, 149-49*0.618, eps) {
		t.Fatalf("unexpected 61.8%% level %v", l618)
	}
	if l0, _ := f.Level(0); l0 != 149 {
		t.Fatalf("level 0 should be the high, got %v", l0)
	}
	if _, ok := f.Level(0.42); ok {
		t.Fatal("unknown ratio must be absent")
	}
}

func TestVolumeAnalysis(t *testing.T) {
	vols := make([]float64, 20)
	for i := range vols {
		vols[i] = 100
	}
	vols[19] = 300

	v, ok := VolumeAnalysis(vols, VolumeLookback, 1.5)
	if !ok {
		t.Fatal("expected volume analysis")
	}
	if !near(v.Average, 110, eps) || !near(v.Ratio, 300.0/110, eps) || !v.IsHighVolume || v.IsLowVolume {
		t.Fatalf("unexpected volume result %+v", v)
	}

	if _, ok := VolumeAnalysis(make([]float64, 20), VolumeLookback, 1.5); ok {
		t.Fatal("zero average volume must be absent")
	}
}
