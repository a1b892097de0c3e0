package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/engine"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/export"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/strategy"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// TradingEngine is what the handlers drive.
type TradingEngine interface {
	Start() error
	Stop()
	EmergencyStop()
	ResetEmergency()
	ResetDailyPnL()
	ExecuteManual(instrumentID string, side types.Side) (types.Trade, error)
	Signals(limit int) []types.Signal
	Trades() []types.Trade
	Positions() []types.Position
	Metrics() types.PerformanceMetrics
	Indicators(id string) (strategy.IndicatorSet, bool)
	Status() engine.Status
}

var _ TradingEngine = (*engine.Engine)(nil)

type SignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=50"`
}

type TradeRequest struct {
	Instrument string `json:"instrument" validate:"required"`
	Side       string `json:"side" default:"BUY" validate:"oneof=BUY SELL"`
}

// Handler serves the dashboard API.
type Handler struct {
	engine TradingEngine
	ws     http.Handler
	log    logger.Logger
	now    func() time.Time
}

// NewHandler builds the routes' handler. ws may be nil to disable /ws.
func NewHandler(e TradingEngine, ws http.Handler, log logger.Logger) *Handler {
	return &Handler{engine: e, ws: ws, log: log, now: time.Now}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.ws != nil {
		e.GET("/ws", echo.WrapHandler(h.ws))
	}

	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/signals", h.Signals)
	g.GET("/trades", h.Trades)
	g.GET("/trades/export", h.ExportTrades)
	g.POST("/trades", h.ExecuteTrade)
	g.GET("/positions", h.Positions)
	g.GET("/metrics", h.Metrics)
	g.GET("/indicators/:instrument", h.Indicators)

	g.POST("/engine/start", h.Start)
	g.POST("/engine/stop", h.Stop)
	g.POST("/engine/emergency-stop", h.EmergencyStop)
	g.POST("/engine/reset-emergency", h.ResetEmergency)
	g.POST("/risk/reset-daily", h.ResetDaily)
}

func (h *Handler) Health(c echo.Context) error {
	return SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *Handler) Status(c echo.Context) error {
	return SuccessResponse(c, h.engine.Status())
}

func (h *Handler) Signals(c echo.Context) error {
	req := &SignalsRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	return SuccessResponse(c, h.engine.Signals(req.Limit))
}

// newestFirst reverses the chronological ledger in place.
func newestFirst(trades []types.Trade) []types.Trade {
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades
}

// Trades lists the ledger newest first.
func (h *Handler) Trades(c echo.Context) error {
	return SuccessResponse(c, newestFirst(h.engine.Trades()))
}

// ExportTrades downloads the ledger as CSV in the same order as Trades.
func (h *Handler) ExportTrades(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(h.now())+`"`)
	res.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(res, newestFirst(h.engine.Trades())); err != nil {
		h.log.Error("trade_export_failed", logger.Err(err))
		return err
	}
	return nil
}

func (h *Handler) ExecuteTrade(c echo.Context) error {
	req := &TradeRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	trade, err := h.engine.ExecuteManual(req.Instrument, types.Side(req.Side))
	if err != nil {
		h.log.Warn("manual_trade_failed",
			logger.String("instrument", req.Instrument),
			logger.String("side", req.Side),
			logger.Err(err),
		)
		return AppErrorResponse(c, err)
	}
	return CreatedResponse(c, trade)
}

func (h *Handler) Positions(c echo.Context) error {
	return SuccessResponse(c, h.engine.Positions())
}

func (h *Handler) Metrics(c echo.Context) error {
	return SuccessResponse(c, h.engine.Metrics())
}

func (h *Handler) Indicators(c echo.Context) error {
	id := c.Param("instrument")
	set, ok := h.engine.Indicators(id)
	if !ok {
		return AppErrorResponse(c, NotFoundErrorf("no indicators for %s yet", id))
	}
	return SuccessResponse(c, set)
}

func (h *Handler) Start(c echo.Context) error {
	if err := h.engine.Start(); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.engine.Status())
}

func (h *Handler) Stop(c echo.Context) error {
	h.engine.Stop()
	return SuccessResponse(c, h.engine.Status())
}

func (h *Handler) EmergencyStop(c echo.Context) error {
	h.engine.EmergencyStop()
	return SuccessResponse(c, h.engine.Status())
}

func (h *Handler) ResetEmergency(c echo.Context) error {
	h.engine.ResetEmergency()
	return SuccessResponse(c, h.engine.Status())
}

func (h *Handler) ResetDaily(c echo.Context) error {
	h.engine.ResetDailyPnL()
	return SuccessResponse(c, h.engine.Status())
}
