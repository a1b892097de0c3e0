package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/engine"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/export"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/testutils"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*echo.Echo, *engine.Engine) {
	t.Helper()
	cfg := config.DefaultStrategy()
	cfg.TradeAmount = 1
	cfg.MaxPositionSize = 1
	eng, err := engine.New(cfg, config.DefaultInstruments(), engine.WithLogger(testutils.NewMockLogger()))
	require.NoError(t, err)

	e := echo.New()
	NewHandler(eng, nil, testutils.NewMockLogger()).RegisterRoutes(e)
	return e, eng
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestEngineLifecycleRoutes(t *testing.T) {
	e, eng := setup(t)

	rec, env := do(t, e, http.MethodPost, "/api/engine/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st engine.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.Running)
	assert.Equal(t, types.Paper, st.Mode)
	assert.Equal(t, 6, st.Instruments)

	rec, _ = do(t, e, http.MethodPost, "/api/engine/emergency-stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, eng.Running())

	rec, env = do(t, e, http.MethodPost, "/api/engine/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_EMERGENCY_HALTED")

	rec, _ = do(t, e, http.MethodPost, "/api/engine/reset-emergency", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodPost, "/api/engine/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/engine/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, eng.Running())
}

func TestManualTradeRoute(t *testing.T) {
	e, eng := setup(t)
	eng.Ingest([]types.Quote{{InstrumentID: "ethereum", Price: 100, Timestamp: time.Now()}})

	rec, env := do(t, e, http.MethodPost, "/api/trades", `{"instrument":"ethereum"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tr types.Trade
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.Equal(t, types.Buy, tr.Side)
	assert.Equal(t, 100.0, tr.Price)

	rec, env = do(t, e, http.MethodPost, "/api/trades", `{"instrument":"ethereum","side":"BUY"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_TRADE_REJECTED")

	rec, _ = do(t, e, http.MethodPost, "/api/trades", `{"instrument":"ethereum","side":"HOLD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/trades", `{"side":"SELL"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/trades", `{"instrument":"dogecoin"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	eng.Ingest([]types.Quote{{InstrumentID: "ethereum", Price: 110, Timestamp: time.Now()}})
	rec, _ = do(t, e, http.MethodPost, "/api/trades", `{"instrument":"ethereum","side":"SELL"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/api/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []types.Trade
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, types.Sell, trades[0].Side, "newest first")

	rec, env = do(t, e, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var m types.PerformanceMetrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, 1, m.TotalTrades)
	assert.InDelta(t, 10, m.TotalProfit, 1e-9)
}

func TestSignalsLimitValidation(t *testing.T) {
	e, eng := setup(t)
	for i := 0; i < 5; i++ {
		eng.ReportFeedError(assert.AnError)
	}

	rec, env := do(t, e, http.MethodGet, "/api/signals?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sigs []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &sigs))
	assert.Len(t, sigs, 2)
	assert.Contains(t, string(sigs[0]), `"indicator":"Price Feed"`)

	rec, env = do(t, e, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &sigs))
	assert.Len(t, sigs, 5)

	rec, env = do(t, e, http.MethodGet, "/api/signals?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_LTE")
}

func TestIndicatorsNotFound(t *testing.T) {
	e, _ := setup(t)
	rec, env := do(t, e, http.MethodGet, "/api/indicators/ethereum", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_NOT_FOUND")
}

func TestExportRoute(t *testing.T) {
	e, eng := setup(t)
	eng.Ingest([]types.Quote{{InstrumentID: "bitcoin", Price: 60000, Timestamp: time.Now()}})
	_, err := eng.ExecuteManual("bitcoin", types.Buy)
	require.NoError(t, err)
	eng.Ingest([]types.Quote{{InstrumentID: "bitcoin", Price: 61000, Timestamp: time.Now()}})
	_, err = eng.ExecuteManual("bitcoin", types.Sell)
	require.NoError(t, err)

	rec, _ := do(t, e, http.MethodGet, "/api/trades/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "trading_history_")

	trades, err := export.ParseCSV(rec.Body)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, types.Sell, trades[0].Side, "newest first")
	assert.Equal(t, 61000.0, trades[0].Price)
	require.NotNil(t, trades[0].Profit)
	assert.InDelta(t, 1000, *trades[0].Profit, 1e-9)
	assert.Equal(t, types.Buy, trades[1].Side)
	assert.Equal(t, "BTC", trades[1].Pair)
	assert.Equal(t, 60000.0, trades[1].Price)
}

func TestHealthAndPositions(t *testing.T) {
	e, _ := setup(t)
	rec, env := do(t, e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	rec, env = do(t, e, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, _ = do(t, e, http.MethodPost, "/api/risk/reset-daily", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
