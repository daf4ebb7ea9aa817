package arima

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/features"
	applogger "PriceCast/pkg/logger"
)

const (
	maxOrder      = 5
	maxDiff       = 2
	sigma2Floor   = 1e-12
	penaltyFactor = 1e6
)

var (
	ErrInvalidOrder  = errors.New("invalid model order")
	ErrTooFewObs     = errors.New("too few observations for order")
	ErrNoConvergence = errors.New("optimizer did not converge")
	ErrNonStationary = errors.New("fitted AR polynomial is not stationary")
	ErrNonInvertible = errors.New("fitted MA polynomial is not invertible")
)

// Fitter estimates ARIMA(p,d,q) models by conditional sum of squares,
// minimized with Nelder-Mead. It holds no per-fit state and is safe for
// concurrent use.
type Fitter struct {
	maxIterations int
	l             *applogger.Logger
}

type Option func(*Fitter)

// WithMaxIterations caps Nelder-Mead major iterations per fit.
func WithMaxIterations(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.maxIterations = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(f *Fitter) { f.l = l }
}

func NewFitter(opts ...Option) *Fitter {
	f := &Fitter{maxIterations: 2000}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fitter) Fit(ctx context.Context, series []float64, order models.ModelOrder) (service.FittedModel, error) {
	if order.P < 0 || order.Q < 0 || order.D < 0 || order.P > maxOrder || order.Q > maxOrder || order.D > maxDiff {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, order)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := features.Difference(series, order.D)
	var mu float64
	z := w
	if order.D == 0 {
		mu, z = features.Demean(w)
	}
	nEff := len(z) - order.P
	if nEff < order.P+order.Q+2 {
		return nil, fmt.Errorf("%w: %d observations for %s", ErrTooFewObs, len(series), order)
	}

	params, err := f.minimize(ctx, z, order)
	if err != nil {
		return nil, err
	}
	phi, theta := params[:order.P], params[order.P:]
	if !stationary(phi) {
		return nil, fmt.Errorf("%w: %s", ErrNonStationary, order)
	}
	if !invertible(theta) {
		return nil, fmt.Errorf("%w: %s", ErrNonInvertible, order)
	}

	m := newModel(series, order, phi, theta, mu)
	if f.l != nil {
		f.l.Debug("arima fitted",
			applogger.String("order", order.String()),
			applogger.Float("aic", m.aic),
			applogger.Float("sigma2", m.sigma2))
	}
	return m, nil
}

// minimize returns [phi..., theta...] minimizing the conditional sum of squares.
func (f *Fitter) minimize(ctx context.Context, z []float64, order models.ModelOrder) ([]float64, error) {
	k := order.P + order.Q
	if k == 0 {
		return nil, nil
	}

	base := css(z, nil, nil, nil)
	objective := func(x []float64) float64 {
		phi, theta := x[:order.P], x[order.P:]
		if !stationary(phi) || !invertible(theta) {
			return penaltyFactor * (1 + base)
		}
		return css(z, phi, theta, nil)
	}

	settings := &optimize.Settings{
		MajorIterations: f.maxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-9,
			Iterations: 25,
		},
	}
	if deadline, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(deadline)
		if settings.Runtime <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	res, err := optimize.Minimize(optimize.Problem{Func: objective}, make([]float64, k), settings, &optimize.NelderMead{})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoConvergence, order, err)
	}
	switch res.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit, optimize.Failure:
		return nil, fmt.Errorf("%w: %s: %s", ErrNoConvergence, order, res.Status)
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, fmt.Errorf("%w: %s: objective %v", ErrNoConvergence, order, res.F)
	}
	return res.X, nil
}

// css is the conditional sum of squared one-step errors of z under the given
// coefficients, with errors before the first AR-complete observation taken as 0.
// When resid is non-nil it receives e_t for every t (zeros before len(phi)).
func css(z, phi, theta, resid []float64) float64 {
	p, q := len(phi), len(theta)
	e := resid
	if e == nil {
		e = make([]float64, len(z))
	}
	var sse float64
	for t := p; t < len(z); t++ {
		pred := 0.0
		for i := 0; i < p; i++ {
			pred += phi[i] * z[t-1-i]
		}
		for j := 0; j < q; j++ {
			if t-1-j >= p {
				pred += theta[j] * e[t-1-j]
			}
		}
		e[t] = z[t] - pred
		sse += e[t] * e[t]
	}
	return sse
}
