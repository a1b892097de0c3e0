// Package sink fans engine notifications out to observers. The engine calls
// a Sink while holding its state lock, so implementations must return
// immediately; Async provides that guarantee for publishers that do I/O.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Sink receives engine notifications.
type Sink interface {
	OnSignal(types.Signal)
	OnTrade(types.Trade)
	OnMetricsUpdate(types.PerformanceMetrics)
}

// Publisher delivers one event to an external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

type EventType string

const (
	EventSignal  EventType = "signal"
	EventTrade   EventType = "trade"
	EventMetrics EventType = "metrics"
)

// Event is the envelope shared by every publisher. Exactly one of Signal,
// Trade or Metrics is set, matching Type.
type Event struct {
	Type    EventType                 `json:"type"`
	Time    time.Time                 `json:"time"`
	Signal  *types.Signal             `json:"signal,omitempty"`
	Trade   *types.Trade              `json:"trade,omitempty"`
	Metrics *types.PerformanceMetrics `json:"metrics,omitempty"`
}

func SignalEvent(s types.Signal) Event {
	return Event{Type: EventSignal, Time: s.Timestamp, Signal: &s}
}

func TradeEvent(t types.Trade) Event {
	return Event{Type: EventTrade, Time: t.Timestamp, Trade: &t}
}

func MetricsEvent(m types.PerformanceMetrics, at time.Time) Event {
	return Event{Type: EventMetrics, Time: at, Metrics: &m}
}

// Key is the partitioning key: the pair for signals and trades, the event
// type otherwise.
func (e Event) Key() string {
	switch {
	case e.Signal != nil:
		return e.Signal.Pair
	case e.Trade != nil:
		return e.Trade.Pair
	}
	return string(e.Type)
}

func (e Event) Marshal() ([]byte, error) { return json.Marshal(e) }

// Multi forwards to every sink in order.
type Multi []Sink

func (m Multi) OnSignal(s types.Signal) {
	for _, k := range m {
		k.OnSignal(s)
	}
}

func (m Multi) OnTrade(t types.Trade) {
	for _, k := range m {
		k.OnTrade(t)
	}
}

func (m Multi) OnMetricsUpdate(p types.PerformanceMetrics) {
	for _, k := range m {
		k.OnMetricsUpdate(p)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) OnSignal(types.Signal)                    {}
func (Nop) OnTrade(types.Trade)                      {}
func (Nop) OnMetricsUpdate(types.PerformanceMetrics) {}
