package engine

import (
	"sync"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// SignalHistory is how many signals are retained.
const SignalHistory = 50

// signalLog keeps the most recent signals, newest first. It has its own lock
// so the ingestion path can record feed alerts without waiting for a cycle.
type signalLog struct {
	mu    sync.RWMutex
	items []types.Signal
	limit int
}

func newSignalLog(limit int) *signalLog {
	return &signalLog{items: make([]types.Signal, 0, limit), limit: limit}
}

func (l *signalLog) add(s types.Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, types.Signal{})
	copy(l.items[1:], l.items)
	l.items[0] = s
	if len(l.items) > l.limit {
		l.items = l.items[:l.limit]
	}
}

// list returns up to n signals, newest first. n <= 0 means all.
func (l *signalLog) list(n int) []types.Signal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.items) {
		n = len(l.items)
	}
	out := make([]types.Signal, n)
	copy(out, l.items[:n])
	return out
}
