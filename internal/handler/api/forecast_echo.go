package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/usecase"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

// RequestEnqueuer hands a forecast request to the asynchronous pipeline and
// returns its tracking key.
type RequestEnqueuer interface {
	Enqueue(ctx context.Context, req models.ForecastRequest) (string, error)
}

// ForecastEchoHandler serves the prediction endpoints.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.ForecastUseCase
	queue   RequestEnqueuer
	limiter echo.MiddlewareFunc
}

// NewForecastEchoHandler creates the handler. queue and limiter may be nil.
func NewForecastEchoHandler(logger *xlogger.Logger, uc *usecase.ForecastUseCase, queue RequestEnqueuer, limiter echo.MiddlewareFunc) *ForecastEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastEchoHandler{logger: logger, uc: uc, queue: queue, limiter: limiter}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/predictions")
	if h.limiter != nil {
		g.Use(h.limiter)
	}
	g.GET("/forecast/:symbol", h.Forecast)
	g.POST("/forecast", h.ForecastRecords)
	if h.queue != nil {
		g.POST("/requests", h.Enqueue)
	}
}

// Forecast serves GET /api/predictions/forecast/:symbol.
func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Forecast(c.Request().Context(), usecase.ForecastParams{
		Symbol: req.Symbol,
		Days:   req.Days,
		Period: req.Period,
	})
	if err != nil {
		return h.fail(c, req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ForecastRecords forecasts caller-supplied daily records.
func (h *ForecastEchoHandler) ForecastRecords(c echo.Context) error {
	req := &models.RecordsForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.ForecastRecords(c.Request().Context(), req.Symbol, req.Days, req.Records)
	if err != nil {
		return h.fail(c, req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Enqueue accepts a forecast request for asynchronous processing; the result
// is published on the results topic.
func (h *ForecastEchoHandler) Enqueue(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	key, err := h.queue.Enqueue(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("forecast enqueue failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("could not enqueue request").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{"request_id": key, "symbol": req.Symbol})
}

func (h *ForecastEchoHandler) fail(c echo.Context, symbol string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error("forecast usecase error", xlogger.String("symbol", symbol), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
