package api

import (
	"errors"

	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/services/forecast"
	"PriceCast/internal/usecase"
	xhttp "PriceCast/pkg/http"
)

// toAppError maps use case and forecasting errors to HTTP envelopes.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	msg := err.Error()
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return xhttp.BadRequestError(msg)
	case errors.Is(err, forecast.ErrData):
		return xhttp.NewAppError("ERR_INVALID_DATA", "records", msg, 400)
	case errors.Is(err, forecast.ErrInsufficientData), errors.Is(err, usecase.ErrHistoryTooShort):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", msg)
	case errors.Is(err, forecast.ErrVolatility):
		return xhttp.UnprocessableError("ERR_VOLATILITY", msg)
	case errors.Is(err, forecast.ErrModelSelection):
		return xhttp.UnprocessableError("ERR_MODEL_SELECTION", msg)
	case errors.Is(err, forecast.ErrNotTrained), errors.Is(err, forecast.ErrPredictorUsed):
		return xhttp.ConflictError(msg)
	case errors.Is(err, domrepo.ErrSymbolNotFound):
		return xhttp.NotFoundErrorf("%s", msg)
	case errors.Is(err, usecase.ErrHistoryUnavailable):
		return xhttp.BadGatewayError(msg)
	default:
		return xhttp.InternalError("forecast failed").WithError(err)
	}
}
