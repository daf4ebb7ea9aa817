package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"PriceCast/internal/domain/service"
	"PriceCast/pkg/util"
)

// Step is a raw forecast for one horizon before uncertainty synthesis.
type Step struct {
	Day  int
	Date time.Time
	Mean float64
	// ModelUncertainty is the t-scaled, horizon-widened residual error.
	ModelUncertainty float64
	// NativeLower and NativeUpper are the fitted model's own 95% bounds.
	NativeLower float64
	NativeUpper float64
}

// ForecastSteps asks the model for days point forecasts and attaches the
// model uncertainty term and the business-day date of every step.
func ForecastSteps(ctx context.Context, model service.FittedModel, anchor time.Time, days int) ([]Step, error) {
	const op = "forecast"
	if days < 1 {
		return nil, newError(op, ErrData, fmt.Sprintf("horizon %d, need at least 1 day", days), nil)
	}

	fc, err := model.Forecast(ctx, days)
	if err != nil {
		return nil, newError(op, ErrModelSelection, "selected model could not forecast", err)
	}
	if len(fc.Mean) != days || len(fc.Lower) != days || len(fc.Upper) != days {
		return nil, newError(op, ErrModelSelection,
			fmt.Sprintf("model returned %d steps, want %d", len(fc.Mean), days), nil)
	}

	rmse := RMSE(model.Residuals())
	n := float64(model.NumObs())
	if n < 1 {
		n = 1
	}
	tcrit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(DegreesOfFreedom(model))}.Quantile(0.975)

	dates := util.BusinessDaysAfter(anchor, days)
	steps := make([]Step, days)
	for i := range steps {
		h := float64(i + 1)
		se := rmse * math.Sqrt(1+h/n+h*(h-1)/(2*n))
		steps[i] = Step{
			Day:              i + 1,
			Date:             dates[i],
			Mean:             fc.Mean[i],
			ModelUncertainty: tcrit * se,
			NativeLower:      fc.Lower[i],
			NativeUpper:      fc.Upper[i],
		}
	}
	return steps, nil
}

// DegreesOfFreedom is observations minus estimated coefficients, floored at 1.
func DegreesOfFreedom(model service.FittedModel) int {
	dof := model.NumObs() - (model.NumAR() + model.NumMA() + 1)
	if dof <= 0 {
		return 1
	}
	return dof
}

// RMSE is the root mean square of residuals; zero for none.
func RMSE(res []float64) float64 {
	if len(res) == 0 {
		return 0
	}
	var ss float64
	for _, e := range res {
		ss += e * e
	}
	return math.Sqrt(ss / float64(len(res)))
}
