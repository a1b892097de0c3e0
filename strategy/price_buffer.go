package strategy

import "github.com/jbabiesrock-netizen/enhanced-trading-bot/types"

// BufferCapacity is the number of samples retained per instrument.
const BufferCapacity = 200

// priceBuffer keeps a rolling window of recent samples. The oldest sample is
// evicted once max is reached; order is always chronological.
type priceBuffer struct {
	max int
	buf []types.Sample
}

func newPriceBuffer(max int) *priceBuffer {
	if max <= 0 {
		max = BufferCapacity
	}
	return &priceBuffer{max: max, buf: make([]types.Sample, 0, max)}
}

func (p *priceBuffer) Add(s types.Sample) {
	p.buf = append(p.buf, s)
	if len(p.buf) > p.max {
		p.buf = p.buf[len(p.buf)-p.max:]
	}
}

// Values returns a copy of the prices.
func (p *priceBuffer) Values() []float64 {
	out := make([]float64, len(p.buf))
	for i, s := range p.buf {
		out[i] = s.Price
	}
	return out
}

// Volumes returns a copy of the volumes of samples that carried one.
func (p *priceBuffer) Volumes() []float64 {
	out := make([]float64, 0, len(p.buf))
	for _, s := range p.buf {
		if s.HasVolume {
			out = append(out, s.Volume)
		}
	}
	return out
}

func (p *priceBuffer) Len() int {
	return len(p.buf)
}

func (p *priceBuffer) Last() (types.Sample, bool) {
	if len(p.buf) == 0 {
		return types.Sample{}, false
	}
	return p.buf[len(p.buf)-1], true
}
