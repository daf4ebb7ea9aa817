package forecast

import (
	"fmt"
	"math"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
)

// Diagnose reports in-sample fit quality. The first observation is left out of
// the RMSE since it has no one-step-ahead prediction.
func Diagnose(model service.FittedModel, s *Series, vol VolatilityEstimate) (models.ModelMetrics, error) {
	const op = "diagnostics"
	if model == nil || s == nil {
		return models.ModelMetrics{}, newError(op, ErrMetrics, "no fitted model", nil)
	}

	fitted := model.FittedValues()
	if len(fitted) != s.Len() || s.Len() < 2 {
		return models.ModelMetrics{}, newError(op, ErrMetrics,
			fmt.Sprintf("%d fitted values for %d observations", len(fitted), s.Len()), nil)
	}
	var sse float64
	for i := 1; i < len(fitted); i++ {
		d := fitted[i] - s.Prices[i]
		sse += d * d
	}
	rmse := math.Sqrt(sse / float64(len(fitted)-1))

	res := model.Residuals()
	if len(res) == 0 {
		return models.ModelMetrics{}, newError(op, ErrMetrics, "model has no residuals", nil)
	}
	var abs float64
	for _, e := range res {
		abs += math.Abs(e)
	}
	mae := abs / float64(len(res))

	return models.ModelMetrics{
		Order:          model.Order(),
		AIC:            model.AIC(),
		BIC:            model.BIC(),
		RMSE:           rmse,
		MAE:            mae,
		Accuracy:       1 - mae/s.LastPrice,
		Volatility:     vol.Blended,
		LastKnownPrice: s.LastPrice,
		LastDate:       s.LastDate,
	}, nil
}
