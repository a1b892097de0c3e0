// Package export writes the trade ledger as CSV and reads it back.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Header is the first CSV row.
var Header = []string{"Type", "Pair", "Price", "Amount", "Time", "Reason", "Status", "Profit", "Profit%", "Fees"}

// Fixed decimal places per column.
const (
	PricePlaces  = 2
	AmountPlaces = 6
	ProfitPlaces = 2
	FeePlaces    = 4
)

// FileName is the suggested download name for an export made at t.
func FileName(t time.Time) string {
	return "trading_history_" + t.UTC().Format(time.DateOnly) + ".csv"
}

// WriteCSV writes one row per trade in the order given; exports hand it
// the ledger newest first, as the trade list shows it. BUY rows leave the
// profit columns empty.
func WriteCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(record(t)); err != nil {
			return fmt.Errorf("write trade %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(t types.Trade) []string {
	return []string{
		string(t.Side),
		t.Pair,
		fixed(t.Price, PricePlaces),
		fixed(t.Amount, AmountPlaces),
		t.Timestamp.UTC().Format(time.RFC3339),
		t.Reason,
		string(t.Mode),
		optional(t.Profit, ProfitPlaces),
		optional(t.ProfitPercent, ProfitPlaces),
		fixed(t.Fees, FeePlaces),
	}
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func optional(v *float64, places int32) string {
	if v == nil {
		return ""
	}
	return fixed(*v, places)
}

// ParseCSV reads what WriteCSV wrote. Values come back at the written
// precision; trade IDs and instrument IDs are not part of the format.
func ParseCSV(r io.Reader) ([]types.Trade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("export: empty input")
		}
		return nil, err
	}
	for i, h := range Header {
		if head[i] != h {
			return nil, fmt.Errorf("export: unexpected column %q, want %q", head[i], h)
		}
	}

	var out []types.Trade
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		t, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("export: line %d: %w", line, err)
		}
		out = append(out, t)
	}
}

func parseRecord(rec []string) (types.Trade, error) {
	var (
		t   types.Trade
		err error
	)
	t.Side = types.Side(rec[0])
	if t.Side != types.Buy && t.Side != types.Sell {
		return t, fmt.Errorf("unknown side %q", rec[0])
	}
	t.Pair = rec[1]
	if t.Price, err = parse(rec[2]); err != nil {
		return t, fmt.Errorf("price: %w", err)
	}
	if t.Amount, err = parse(rec[3]); err != nil {
		return t, fmt.Errorf("amount: %w", err)
	}
	if t.Timestamp, err = time.Parse(time.RFC3339, rec[4]); err != nil {
		return t, fmt.Errorf("time: %w", err)
	}
	t.Reason = rec[5]
	t.Mode = types.Mode(rec[6])
	if t.Profit, err = parseOptional(rec[7]); err != nil {
		return t, fmt.Errorf("profit: %w", err)
	}
	if t.ProfitPercent, err = parseOptional(rec[8]); err != nil {
		return t, fmt.Errorf("profit%%: %w", err)
	}
	if t.Fees, err = parse(rec[9]); err != nil {
		return t, fmt.Errorf("fees: %w", err)
	}
	return t, nil
}

func parse(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
