package api

import (
	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/usecase"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

type HistoryEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.HistoryUseCase
}

func NewHistoryEchoHandler(logger *xlogger.Logger, uc *usecase.HistoryUseCase) *HistoryEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HistoryEchoHandler{logger: logger, uc: uc}
}

func (h *HistoryEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stock/:symbol", h.Summary)
	e.GET("/api/stocks/historical/:symbol", h.Historical)
}

// Summary serves GET /api/stock/:symbol with listing details and history.
func (h *HistoryEchoHandler) Summary(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.GetSummary(c.Request().Context(), req.Symbol, req.Period)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("stock summary usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, res)
}

// Historical serves GET /api/stocks/historical/:symbol.
func (h *HistoryEchoHandler) Historical(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.GetHistory(c.Request().Context(), req.Symbol, req.Period)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("history usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

// Routes combines handlers into one xhttp.Handler.
type Routes []xhttp.Handler

func (r Routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r {
		h.RegisterRoutes(e)
	}
}
