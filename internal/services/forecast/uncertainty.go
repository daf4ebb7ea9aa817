package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"PriceCast/internal/domain/models"
)

const (
	minPrice      = 0.01
	minConfidence = 0.70
	maxConfidence = 0.95
	volCeiling    = 0.5
)

// Synthesize turns raw steps into final forecast points. Total uncertainty is
// the root sum of squares of model and market terms. The band half-width is
// its running maximum over horizons, so bounds never narrow even when the
// predicted price falls; confidence scores the step's own total.
func Synthesize(steps []Step, vol VolatilityEstimate, residuals []float64) []models.ForecastPoint {
	z := distuv.UnitNormal.Quantile(0.975)
	normality := residualNormality(residuals)
	volFactor := clamp01(1 - math.Min(1, vol.Blended/volCeiling))

	out := make([]models.ForecastPoint, len(steps))
	var widest float64
	for i, st := range steps {
		h := float64(st.Day)
		pred := math.Max(minPrice, st.Mean)

		market := pred * vol.Blended * math.Sqrt(h/tradingDays)
		total := math.Hypot(st.ModelUncertainty, market)
		if math.IsNaN(total) {
			total = widest
		}
		half := math.Max(total, widest)
		widest = half

		fstd := (st.NativeUpper - st.NativeLower) / (2 * z)
		conf := 0.30*clamp01(0.95*math.Exp(-h/tradingDays)) +
			0.25*clamp01(1-fstd/pred) +
			0.15*normality +
			0.15*volFactor +
			0.15*clamp01(1-total/pred)

		out[i] = models.ForecastPoint{
			Day:            st.Day,
			Date:           st.Date,
			PredictedPrice: pred,
			LowerBound:     math.Max(minPrice, pred-half),
			UpperBound:     pred + half,
			Confidence:     clampConfidence(conf),
			Volatility:     vol.Blended,
		}
	}
	return out
}

// residualNormality is Phi(-|mean|/std) of the residuals.
func residualNormality(res []float64) float64 {
	if len(res) < 2 {
		return 0.5
	}
	mean, std := stat.MeanStdDev(res, nil)
	if std == 0 || math.IsNaN(std) {
		if mean == 0 {
			return 0.5
		}
		return 0
	}
	return clamp01(distuv.UnitNormal.CDF(-math.Abs(mean) / std))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return minConfidence
	}
	return math.Max(minConfidence, math.Min(maxConfidence, v))
}
