package strategy

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

var (
	ErrInvalidPrice      = errors.New("price must be positive and finite")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrStaleTick         = errors.New("tick is older than the latest sample")
)

// Store holds one rolling buffer per instrument. Ingestion is the only
// writer; readers always receive copies.
type Store struct {
	mu       sync.RWMutex
	buffers  map[string]*priceBuffer
	capacity int
}

// NewStore allocates a buffer for every instrument. A non-positive capacity
// selects BufferCapacity.
func NewStore(instruments []types.Instrument, capacity int) *Store {
	if capacity <= 0 {
		capacity = BufferCapacity
	}
	s := &Store{
		buffers:  make(map[string]*priceBuffer, len(instruments)),
		capacity: capacity,
	}
	for _, in := range instruments {
		s.buffers[in.ID] = newPriceBuffer(capacity)
	}
	return s
}

// OnTick appends a sample. Invalid prices, unknown instruments and ticks
// older than the newest sample are rejected; a missing, non-positive or
// non-finite volume is stored as absent.
func (s *Store) OnTick(id string, price float64, volume *float64, at time.Time) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%s: %w: %v", id, ErrInvalidPrice, price)
	}
	sample := types.Sample{Timestamp: at, Price: price}
	if volume != nil && *volume > 0 && !math.IsInf(*volume, 0) {
		sample.Volume = *volume
		sample.HasVolume = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownInstrument)
	}
	if last, ok := buf.Last(); ok && at.Before(last.Timestamp) {
		return fmt.Errorf("%s: %w: %s before %s", id, ErrStaleTick,
			at.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
	}
	buf.Add(sample)
	return nil
}

// Snapshot returns copies of the price and volume series for id, oldest
// first.
func (s *Store) Snapshot(id string) (prices, volumes []float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.buffers[id]
	if !ok {
		return nil, nil
	}
	return buf.Values(), buf.Volumes()
}

// LastPrice is the most recently ingested price for id.
func (s *Store) LastPrice(id string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.buffers[id]
	if !ok {
		return 0, false
	}
	last, ok := buf.Last()
	return last.Price, ok
}

// Len is the number of samples held for id.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if buf, ok := s.buffers[id]; ok {
		return buf.Len()
	}
	return 0
}

// Capacity is the per-instrument bound.
func (s *Store) Capacity() int { return s.capacity }
