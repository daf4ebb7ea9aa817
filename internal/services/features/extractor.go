package features

import "math"

// LogReturns computes r_t = ln(P_t / P_{t-1}).
// It returns a slice of length len(prices)-1, or nil if insufficient data.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		cur := prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized volatility of the latest window of returns.
func RealizedVolatility(returns []float64, window int, periodsPerYear float64) float64 {
	if window <= 1 || len(returns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(returns) - window; i < len(returns); i++ {
		r := returns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * periodsPerYear)
}

// Difference applies d rounds of first differencing. The result has len(x)-d values.
func Difference(x []float64, d int) []float64 {
	out := append([]float64(nil), x...)
	for k := 0; k < d && len(out) > 0; k++ {
		for i := 0; i < len(out)-1; i++ {
			out[i] = out[i+1] - out[i]
		}
		out = out[:len(out)-1]
	}
	return out
}

// Demean returns the mean of x and x with it subtracted.
func Demean(x []float64) (float64, []float64) {
	if len(x) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mu := sum / float64(len(x))
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mu
	}
	return mu, out
}

// DifferencePolynomial returns the coefficients of (1-B)^d, constant term first.
func DifferencePolynomial(d int) []float64 {
	poly := []float64{1}
	for k := 0; k < d; k++ {
		next := make([]float64, len(poly)+1)
		for i, c := range poly {
			next[i] += c
			next[i+1] -= c
		}
		poly = next
	}
	return poly
}

// MaxDrawdown is the largest peak-to-trough fall of prices, as a fraction of the peak.
func MaxDrawdown(prices []float64) float64 {
	var peak, worst float64
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			if dd := (peak - p) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
