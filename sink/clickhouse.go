package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// TradeTable is where executed trades are stored.
const TradeTable = "tradebot_trades"

// TradeSchema creates the trade table (idempotent).
var TradeSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + TradeTable + ` (
		id String,
		ts DateTime64(3),
		side LowCardinality(String),
		instrument_id LowCardinality(String),
		pair LowCardinality(String),
		price Float64,
		amount Float64,
		reason String,
		mode LowCardinality(String),
		profit Nullable(Float64),
		profit_percent Nullable(Float64),
		fees Float64
	) ENGINE = MergeTree ORDER BY (pair, ts)`,
}

// ClickHouseStore persists trades. Signal and metrics events are ignored.
type ClickHouseStore struct {
	db    *sql.DB
	table string
}

// OpenClickHouse opens and pings a connection pool for dsn.
func OpenClickHouse(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return db, nil
}

func NewClickHouseStore(db *sql.DB) *ClickHouseStore {
	return &ClickHouseStore{db: db, table: TradeTable}
}

func (s *ClickHouseStore) Name() string { return "clickhouse" }

// InitSchema runs TradeSchema.
func (s *ClickHouseStore) InitSchema(ctx context.Context) error {
	for _, stmt := range TradeSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) Publish(ctx context.Context, e Event) error {
	if e.Trade == nil {
		return nil
	}
	return s.Store(ctx, *e.Trade)
}

// Store inserts one trade.
func (s *ClickHouseStore) Store(ctx context.Context, t types.Trade) error {
	q := fmt.Sprintf("INSERT INTO %s (id, ts, side, instrument_id, pair, price, amount, reason, mode, profit, profit_percent, fees) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		t.ID,
		t.Timestamp,
		string(t.Side),
		t.InstrumentID,
		t.Pair,
		t.Price,
		t.Amount,
		t.Reason,
		string(t.Mode),
		t.Profit,
		t.ProfitPercent,
		t.Fees,
	)
	return err
}

// Recent returns up to limit trades for pair, newest first.
func (s *ClickHouseStore) Recent(ctx context.Context, pair string, limit int) ([]types.Trade, error) {
	q := fmt.Sprintf("SELECT id, ts, side, instrument_id, pair, price, amount, reason, mode, profit, profit_percent, fees FROM %s WHERE pair = ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, pair, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var (
			t              types.Trade
			side, mode     string
			profit, profPc sql.NullFloat64
		)
		if err := rows.Scan(&t.ID, &t.Timestamp, &side, &t.InstrumentID, &t.Pair, &t.Price, &t.Amount, &t.Reason, &mode, &profit, &profPc, &t.Fees); err != nil {
			return nil, err
		}
		t.Side, t.Mode = types.Side(side), types.Mode(mode)
		if profit.Valid {
			t.Profit = &profit.Float64
		}
		if profPc.Valid {
			t.ProfitPercent = &profPc.Float64
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Health pings the database.
func (s *ClickHouseStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *ClickHouseStore) Close() error { return s.db.Close() }
