package arima

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
)

// Model is a fitted ARIMA model on a level series.
type Model struct {
	order  models.ModelOrder
	phi    []float64
	theta  []float64
	mu     float64 // only estimated when d == 0
	sigma2 float64
	loglik float64
	aic    float64
	bic    float64

	series []float64
	// resid holds e_t aligned to level index; entries before first are zero.
	resid []float64
	first int
}

func newModel(series []float64, order models.ModelOrder, phi, theta []float64, mu float64) *Model {
	m := &Model{
		order:  order,
		phi:    append([]float64(nil), phi...),
		theta:  append([]float64(nil), theta...),
		mu:     mu,
		series: append([]float64(nil), series...),
		resid:  make([]float64, len(series)),
		first:  order.D + order.P,
	}

	w := features.Difference(series, order.D)
	z := w
	if order.D == 0 {
		z = make([]float64, len(w))
		for i, v := range w {
			z[i] = v - mu
		}
	}
	e := make([]float64, len(z))
	sse := css(z, m.phi, m.theta, e)
	copy(m.resid[order.D:], e)

	nEff := float64(len(z) - order.P)
	m.sigma2 = math.Max(sse/nEff, sigma2Floor)
	m.loglik = -nEff / 2 * (math.Log(2*math.Pi*m.sigma2) + 1)

	k := float64(order.P + order.Q + 1)
	if order.D == 0 {
		k++
	}
	m.aic = -2*m.loglik + 2*k
	m.bic = -2*m.loglik + k*math.Log(nEff)
	return m
}

func (m *Model) Order() models.ModelOrder { return m.order }
func (m *Model) AIC() float64             { return m.aic }
func (m *Model) BIC() float64             { return m.bic }
func (m *Model) LogLikelihood() float64   { return m.loglik }
func (m *Model) Sigma2() float64          { return m.sigma2 }
func (m *Model) NumAR() int               { return len(m.phi) }
func (m *Model) NumMA() int               { return len(m.theta) }
func (m *Model) NumObs() int              { return len(m.series) }
func (m *Model) Mean() float64            { return m.mu }

// AR returns a copy of the autoregressive coefficients.
func (m *Model) AR() []float64 { return append([]float64(nil), m.phi...) }

// MA returns a copy of the moving-average coefficients.
func (m *Model) MA() []float64 { return append([]float64(nil), m.theta...) }

// Residuals returns one-step errors of every observation that has a prediction.
func (m *Model) Residuals() []float64 {
	return append([]float64(nil), m.resid[m.first:]...)
}

// FittedValues returns in-sample level predictions; the first d+p observations
// carry their own value.
func (m *Model) FittedValues() []float64 {
	out := make([]float64, len(m.series))
	for t, y := range m.series {
		out[t] = y - m.resid[t]
	}
	return out
}

// levelAR returns a_1..a_P of the integrated AR polynomial phi(B)(1-B)^d,
// written as x_t = sum a_k x_{t-k} + ...
func (m *Model) levelAR() []float64 {
	lag := make([]float64, len(m.phi)+1)
	lag[0] = 1
	for i, c := range m.phi {
		lag[i+1] = -c
	}
	full := multiplyLag(lag, features.DifferencePolynomial(m.order.D))
	a := make([]float64, len(full)-1)
	for k := range a {
		a[k] = -full[k+1]
	}
	return a
}

// Forecast returns steps point forecasts and 95% bounds from psi-weight variances.
func (m *Model) Forecast(ctx context.Context, steps int) (models.ModelForecast, error) {
	if steps < 1 {
		return models.ModelForecast{}, fmt.Errorf("forecast steps %d: must be positive", steps)
	}
	if err := ctx.Err(); err != nil {
		return models.ModelForecast{}, err
	}

	a := m.levelAR()
	n := len(m.series)
	x := make([]float64, n+steps)
	e := make([]float64, n+steps)
	for t, y := range m.series {
		x[t] = y - m.mu
	}
	copy(e, m.resid)

	for t := n; t < n+steps; t++ {
		var v float64
		for k, c := range a {
			if t-1-k >= 0 {
				v += c * x[t-1-k]
			}
		}
		for j, c := range m.theta {
			if t-1-j >= 0 {
				v += c * e[t-1-j]
			}
		}
		x[t] = v
	}

	psi := make([]float64, steps)
	psi[0] = 1
	for j := 1; j < steps; j++ {
		if j <= len(m.theta) {
			psi[j] = m.theta[j-1]
		}
		for k := 1; k <= len(a) && k <= j; k++ {
			psi[j] += a[k-1] * psi[j-k]
		}
	}

	z := distuv.UnitNormal.Quantile(0.975)
	fc := models.ModelForecast{
		Mean:  make([]float64, steps),
		Lower: make([]float64, steps),
		Upper: make([]float64, steps),
	}
	var cum float64
	for h := 0; h < steps; h++ {
		cum += psi[h] * psi[h]
		half := z * math.Sqrt(m.sigma2*cum)
		mean := x[n+h] + m.mu
		fc.Mean[h] = mean
		fc.Lower[h] = mean - half
		fc.Upper[h] = mean + half
	}
	return fc, nil
}
