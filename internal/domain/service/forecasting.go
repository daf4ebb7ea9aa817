package service

import (
	"context"

	"PriceCast/internal/domain/models"
)

// ModelFitter estimates an ARIMA model of the given order on a price series.
// A failed fit (non-convergence, singular system, non-stationary solution)
// is reported as a non-nil error and never as a partially usable model.
type ModelFitter interface {
	Fit(ctx context.Context, series []float64, order models.ModelOrder) (FittedModel, error)
}

// FittedModel is the handle returned by a successful fit. It is bound to one
// forecast invocation and is not shared.
type FittedModel interface {
	Order() models.ModelOrder
	AIC() float64
	BIC() float64
	// Residuals are the one-step-ahead errors of observations that have a prediction.
	Residuals() []float64
	// FittedValues has one in-sample prediction per observation; observations
	// without a prediction carry their own value.
	FittedValues() []float64
	NumAR() int
	NumMA() int
	NumObs() int
	Forecast(ctx context.Context, steps int) (models.ModelForecast, error)
}
