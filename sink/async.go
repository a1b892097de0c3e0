package sink

import (
	"context"
	"sync"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/metrics"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Async is a Sink that queues events and hands them to publishers on a
// background goroutine. Enqueueing never blocks: when the buffer is full the
// event is dropped and counted.
type Async struct {
	pubs           []Publisher
	log            logger.Logger
	ch             chan Event
	publishTimeout time.Duration
	now            func() time.Time

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
	dropped uint64
}

type AsyncOption func(*Async)

// WithBufferSize sets the queue length.
func WithBufferSize(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.ch = make(chan Event, n)
		}
	}
}

// WithPublishTimeout bounds every Publish call.
func WithPublishTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.publishTimeout = d
		}
	}
}

// WithClock overrides the timestamp source for metrics events.
func WithClock(now func() time.Time) AsyncOption {
	return func(a *Async) { a.now = now }
}

func NewAsync(log logger.Logger, pubs []Publisher, opts ...AsyncOption) *Async {
	a := &Async{
		pubs:           pubs,
		log:            log,
		ch:             make(chan Event, 256),
		publishTimeout: 5 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Async) OnSignal(s types.Signal) { a.enqueue(SignalEvent(s)) }
func (a *Async) OnTrade(t types.Trade)   { a.enqueue(TradeEvent(t)) }
func (a *Async) OnMetricsUpdate(m types.PerformanceMetrics) {
	a.enqueue(MetricsEvent(m, a.now()))
}

func (a *Async) enqueue(e Event) {
	select {
	case a.ch <- e:
	default:
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
		metrics.SinkDropped.WithLabelValues(string(e.Type)).Inc()
	}
}

// Dropped is the number of events discarded so far.
func (a *Async) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Start launches the delivery loop. It returns immediately. A stopped
// sink may be started again.
func (a *Async) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	stopCh, done := make(chan struct{}), make(chan struct{})
	a.stopCh, a.done = stopCh, done
	a.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				a.drain()
				return
			case <-stopCh:
				a.drain()
				return
			case e := <-a.ch:
				a.deliver(e)
			}
		}
	}()
}

// Stop flushes what is queued and waits for the loop to exit.
func (a *Async) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	stopCh, done := a.stopCh, a.done
	a.mu.Unlock()
	close(stopCh)
	<-done
}

func (a *Async) drain() {
	for {
		select {
		case e := <-a.ch:
			a.deliver(e)
		default:
			return
		}
	}
}

func (a *Async) deliver(e Event) {
	for _, p := range a.pubs {
		ctx, cancel := context.WithTimeout(context.Background(), a.publishTimeout)
		err := p.Publish(ctx, e)
		cancel()
		if err != nil {
			metrics.SinkErrors.WithLabelValues(p.Name()).Inc()
			a.log.Warn("sink_publish_failed",
				logger.String("sink", p.Name()),
				logger.String("event", string(e.Type)),
				logger.Err(err),
			)
		}
	}
}
