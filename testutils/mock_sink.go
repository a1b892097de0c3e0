package testutils

import (
	"sync"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// MockSink records every notification in memory.
type MockSink struct {
	mu      sync.RWMutex
	signals []types.Signal
	trades  []types.Trade
	metrics []types.PerformanceMetrics
}

// NewMockSink creates an empty recorder.
func NewMockSink() *MockSink { return &MockSink{} }

func (m *MockSink) OnSignal(s types.Signal) {
	m.mu.Lock()
	m.signals = append(m.signals, s)
	m.mu.Unlock()
}

func (m *MockSink) OnTrade(t types.Trade) {
	m.mu.Lock()
	m.trades = append(m.trades, t)
	m.mu.Unlock()
}

func (m *MockSink) OnMetricsUpdate(p types.PerformanceMetrics) {
	m.mu.Lock()
	m.metrics = append(m.metrics, p)
	m.mu.Unlock()
}

// Signals returns a copy of the recorded signals, oldest first.
func (m *MockSink) Signals() []types.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Signal(nil), m.signals...)
}

// Trades returns a copy of the recorded trades, oldest first.
func (m *MockSink) Trades() []types.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Trade(nil), m.trades...)
}

// Metrics returns a copy of the recorded snapshots.
func (m *MockSink) Metrics() []types.PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.PerformanceMetrics(nil), m.metrics...)
}

// SignalsFrom filters recorded signals by source.
func (m *MockSink) SignalsFrom(source string) []types.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Signal
	for _, s := range m.signals {
		if s.Source == source {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets everything recorded so far.
func (m *MockSink) Reset() {
	m.mu.Lock()
	m.signals, m.trades, m.metrics = nil, nil, nil
	m.mu.Unlock()
}
