package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/engine"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/strategy"
)

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// AppError is an application error with its HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_NOT_FOUND", fmt.Sprintf(format, a...), http.StatusNotFound)
}

// toAppError maps engine errors onto HTTP statuses.
func toAppError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, strategy.ErrUnknownInstrument):
		return NewAppError("ERR_UNKNOWN_INSTRUMENT", err.Error(), http.StatusNotFound).WithError(err)
	case errors.Is(err, engine.ErrEngineRunning):
		return NewAppError("ERR_ENGINE_RUNNING", err.Error(), http.StatusConflict).WithError(err)
	case errors.Is(err, engine.ErrEmergencyHalted):
		return NewAppError("ERR_EMERGENCY_HALTED", err.Error(), http.StatusConflict).WithError(err)
	case errors.Is(err, engine.ErrTradingHalted):
		return NewAppError("ERR_TRADING_HALTED", err.Error(), http.StatusConflict).WithError(err)
	case errors.Is(err, engine.ErrNoPrice):
		return NewAppError("ERR_NO_PRICE", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, engine.ErrTradeRejected):
		return NewAppError("ERR_TRADE_REJECTED", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	}
	return NewAppError("ERR_INTERNAL", "Something went wrong", http.StatusInternalServerError).WithError(err)
}

// DataResponse writes data under statusCode.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// AppErrorResponse writes err using its mapped status.
func AppErrorResponse(c echo.Context, err error) error {
	appErr := toAppError(err)
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
