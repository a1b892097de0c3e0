// Package feed pulls market prices from external sources.
package feed

import (
	"context"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Feed returns the latest quotes on every poll. Implementations bound their
// own I/O; the caller just polls again on the next tick after an error.
type Feed interface {
	Name() string
	Poll(ctx context.Context) ([]types.Quote, error)
}

// resolver maps the identifiers a source uses onto instrument IDs.
type resolver map[string]string

func newResolver(instruments []types.Instrument, keys func(types.Instrument) []string) resolver {
	r := make(resolver, len(instruments)*2)
	for _, in := range instruments {
		for _, k := range keys(in) {
			if k != "" {
				r[k] = in.ID
			}
		}
	}
	return r
}

func (r resolver) lookup(key string) (string, bool) {
	id, ok := r[key]
	return id, ok
}
