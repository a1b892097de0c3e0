package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

const coinGeckoPricePath = "/api/v3/simple/price"

// CoinGecko polls the public simple/price endpoint for every instrument in
// one request, including 24h volume.
type CoinGecko struct {
	baseURL     string
	vsCurrency  string
	client      *http.Client
	now         func() time.Time
	instruments []types.Instrument
}

type CoinGeckoOption func(*CoinGecko)

func WithBaseURL(u string) CoinGeckoOption {
	return func(c *CoinGecko) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithVsCurrency(cur string) CoinGeckoOption {
	return func(c *CoinGecko) {
		if cur != "" {
			c.vsCurrency = strings.ToLower(cur)
		}
	}
}

// WithTimeout bounds each poll.
func WithTimeout(d time.Duration) CoinGeckoOption {
	return func(c *CoinGecko) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the client; its timeout applies as is.
func WithHTTPClient(hc *http.Client) CoinGeckoOption {
	return func(c *CoinGecko) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithFeedClock overrides the timestamp given to quotes.
func WithFeedClock(now func() time.Time) CoinGeckoOption {
	return func(c *CoinGecko) { c.now = now }
}

func NewCoinGecko(instruments []types.Instrument, opts ...CoinGeckoOption) *CoinGecko {
	c := &CoinGecko{
		baseURL:     "https://api.coingecko.com",
		vsCurrency:  "usd",
		client:      &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
		instruments: instruments,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CoinGecko) Name() string { return "coingecko" }

// Poll fetches one quote per instrument. Instruments missing from the
// response or priced at zero are left out.
func (c *CoinGecko) Poll(ctx context.Context) ([]types.Quote, error) {
	ids := make([]string, 0, len(c.instruments))
	for _, in := range c.instruments {
		ids = append(ids, in.FeedID)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", c.vsCurrency)
	q.Set("include_24hr_vol", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+coinGeckoPricePath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	at := c.now()
	volKey := c.vsCurrency + "_24h_vol"
	quotes := make([]types.Quote, 0, len(payload))
	for _, in := range c.instruments {
		row, ok := payload[in.FeedID]
		if !ok {
			continue
		}
		price := row[c.vsCurrency]
		if price <= 0 {
			continue
		}
		quote := types.Quote{InstrumentID: in.ID, Price: price, Timestamp: at}
		if v, ok := row[volKey]; ok && v > 0 {
			vol := v
			quote.Volume = &vol
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}
