package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	tradingDays = 252
	volWindow   = 30
	ewmaLambda  = 0.94
	weightHist  = 0.4
	weightEWMA  = 0.4
	weightRange = 0.2
)

// VolatilityEstimate holds the annualized component estimates and their blend.
type VolatilityEstimate struct {
	Historical float64
	EWMA       float64
	Range      float64
	Blended    float64
	// HasRange is false when Range fell back to Historical.
	HasRange bool
}

// EstimateVolatility blends rolling, exponentially weighted and Parkinson range
// volatility of simple returns, all annualized over 252 trading days.
func EstimateVolatility(s *Series) (VolatilityEstimate, error) {
	const op = "volatility"

	r := Returns(s.Prices)
	if len(r) < 2 {
		return VolatilityEstimate{}, newError(op, ErrVolatility,
			fmt.Sprintf("%d returns, need at least 2", len(r)), nil)
	}
	w := volWindow
	if len(r) < w {
		w = len(r)
	}
	annual := math.Sqrt(tradingDays)

	est := VolatilityEstimate{
		Historical: stat.StdDev(r[len(r)-w:], nil) * annual,
		EWMA:       ewmaStd(r, ewmaLambda) * annual,
	}
	est.Range = est.Historical
	if s.HasRange() {
		if pk, ok := parkinson(s.Highs[len(s.Highs)-w:], s.Lows[len(s.Lows)-w:]); ok {
			est.Range = pk * annual
			est.HasRange = true
		}
	}
	est.Blended = weightHist*est.Historical + weightEWMA*est.EWMA + weightRange*est.Range

	if math.IsNaN(est.Blended) || math.IsInf(est.Blended, 0) || est.Blended < 0 {
		return VolatilityEstimate{}, newError(op, ErrVolatility, "non-finite estimate", nil)
	}
	return est, nil
}

// Returns computes period-over-period relative changes.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

// ewmaStd weights lag i from the most recent return by (1-lambda)*lambda^i, normalized.
func ewmaStd(r []float64, lambda float64) float64 {
	var sum, norm float64
	wt := 1 - lambda
	for i := len(r) - 1; i >= 0; i-- {
		sum += wt * r[i] * r[i]
		norm += wt
		wt *= lambda
	}
	if norm == 0 {
		return 0
	}
	return math.Sqrt(sum / norm)
}

func parkinson(highs, lows []float64) (float64, bool) {
	if len(highs) == 0 || len(highs) != len(lows) {
		return 0, false
	}
	var sum float64
	for i := range highs {
		if highs[i] <= 0 || lows[i] <= 0 || highs[i] < lows[i] {
			return 0, false
		}
		l := math.Log(highs[i] / lows[i])
		sum += l * l
	}
	return math.Sqrt(sum / float64(len(highs)) / (4 * math.Ln2)), true
}
