package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// messageReader is the part of *kafka.Reader the feed needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// tickMessage is the wire format: {symbol, t, c, v}. t may be seconds or
// milliseconds; v is optional.
type tickMessage struct {
	Symbol string   `json:"symbol"`
	T      int64    `json:"t"`
	C      float64  `json:"c"`
	V      *float64 `json:"v,omitempty"`
}

// KafkaFeed consumes ticks from a topic in the background and hands out the
// newest quote per instrument on each poll.
type KafkaFeed struct {
	r   messageReader
	ids resolver
	log logger.Logger

	mu        sync.Mutex
	pending   map[string]types.Quote
	delivered map[string]time.Time
	lastErr   error
}

type KafkaFeedConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

func NewKafkaFeed(cfg KafkaFeedConfig, instruments []types.Instrument, log logger.Logger) (*KafkaFeed, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka feed: brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka feed: topic is required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newKafkaFeed(r, instruments, log), nil
}

func newKafkaFeed(r messageReader, instruments []types.Instrument, log logger.Logger) *KafkaFeed {
	return &KafkaFeed{
		r: r,
		ids: newResolver(instruments, func(in types.Instrument) []string {
			return []string{in.ID, strings.ToUpper(in.Symbol), in.FeedID}
		}),
		log:       log,
		pending:   make(map[string]types.Quote),
		delivered: make(map[string]time.Time),
	}
}

func (f *KafkaFeed) Name() string { return "kafka" }

// Run reads until ctx is cancelled.
func (f *KafkaFeed) Run(ctx context.Context) {
	for {
		readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		msg, err := f.r.ReadMessage(readCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				f.setErr(err)
				f.log.Warn("kafka_feed_read_failed", logger.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}
		if err := f.handle(msg.Value); err != nil {
			f.log.Warn("kafka_feed_bad_message", logger.Err(err))
		}
	}
}

func (f *KafkaFeed) handle(b []byte) error {
	var m tickMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("unmarshal tick: %w", err)
	}
	id, ok := f.ids.lookup(m.Symbol)
	if !ok {
		id, ok = f.ids.lookup(strings.ToUpper(m.Symbol))
	}
	if !ok {
		return fmt.Errorf("unknown symbol %q", m.Symbol)
	}
	if m.T > 1e11 {
		m.T /= 1000
	}
	at := time.Now()
	if m.T > 0 {
		at = time.Unix(m.T, 0).UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.pending[id]; ok && prev.Timestamp.After(at) {
		return nil
	}
	if last, ok := f.delivered[id]; ok && at.Before(last) {
		return nil
	}
	f.pending[id] = types.Quote{InstrumentID: id, Price: m.C, Volume: m.V, Timestamp: at}
	f.lastErr = nil
	return nil
}

func (f *KafkaFeed) setErr(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

// Poll drains the buffered quotes, ordered by instrument. Ticks older than
// what an earlier poll handed out are dropped on arrival. With nothing
// buffered it reports the last read error, if any.
func (f *KafkaFeed) Poll(context.Context) ([]types.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, f.lastErr
	}
	out := make([]types.Quote, 0, len(f.pending))
	for id, q := range f.pending {
		out = append(out, q)
		f.delivered[id] = q.Timestamp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	f.pending = make(map[string]types.Quote, len(out))
	return out, nil
}

func (f *KafkaFeed) Close() error { return f.r.Close() }
