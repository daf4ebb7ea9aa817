package forecast

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	applogger "PriceCast/pkg/logger"
)

type state int

const (
	stateUntrained state = iota
	stateTrained
	stateFailed
)

// Option configures a Predictor.
type Option func(*Predictor)

// WithGrid sets the order search bounds.
func WithGrid(g Grid) Option {
	return func(p *Predictor) { p.grid = g }
}

// WithWorkers bounds concurrent candidate fits. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Predictor) { p.workers = n }
}

func WithLogger(l *applogger.Logger) Option {
	return func(p *Predictor) { p.l = l }
}

// Predictor runs one forecast pipeline: Train once, then PredictNextDays and
// ModelMetrics as often as needed. An instance is not safe for concurrent use
// and cannot be retrained; build a new one per request.
type Predictor struct {
	fitter  service.ModelFitter
	grid    Grid
	workers int
	l       *applogger.Logger

	state  state
	series *Series
	vol    VolatilityEstimate
	search SearchResult
}

func NewPredictor(fitter service.ModelFitter, opts ...Option) *Predictor {
	p := &Predictor{
		fitter: fitter,
		grid:   DefaultGrid(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Train normalizes records, estimates volatility and selects a fitted model.
// On failure nothing is retained and the instance stays unusable.
func (p *Predictor) Train(ctx context.Context, records []models.PriceRecord) error {
	if p.state != stateUntrained {
		return newError("train", ErrPredictorUsed, "build a new predictor per training", nil)
	}
	p.state = stateFailed
	start := time.Now()

	s, err := Normalize(records)
	if err != nil {
		return err
	}
	vol, err := EstimateVolatility(s)
	if err != nil {
		return err
	}
	res, err := SearchOrder(ctx, p.fitter, s, p.grid, p.workers, p.l)
	if err != nil {
		return err
	}

	p.series, p.vol, p.search = s, vol, res
	p.state = stateTrained

	if p.l != nil {
		p.l.Info("predictor trained",
			applogger.Int("observations", s.Len()),
			applogger.String("order", res.Order.String()),
			applogger.Float("aic", res.Model.AIC()),
			applogger.Bool("fallback", res.Fallback),
			applogger.Int("fitted_candidates", res.Fitted),
			applogger.Float("volatility", vol.Blended),
			applogger.Duration("duration_ms", time.Since(start)))
	}
	return nil
}

// PredictNextDays forecasts the business days after the last observation.
func (p *Predictor) PredictNextDays(ctx context.Context, days int) ([]models.ForecastPoint, error) {
	if p.state != stateTrained {
		return nil, newError("predict", ErrNotTrained, "call Train first", nil)
	}
	steps, err := ForecastSteps(ctx, p.search.Model, p.series.LastDate, days)
	if err != nil {
		return nil, err
	}
	return Synthesize(steps, p.vol, p.search.Model.Residuals()), nil
}

// ModelMetrics reports in-sample diagnostics of the selected model.
func (p *Predictor) ModelMetrics() (models.ModelMetrics, error) {
	if p.state != stateTrained {
		return models.ModelMetrics{}, newError("metrics", ErrNotTrained, "call Train first", nil)
	}
	return Diagnose(p.search.Model, p.series, p.vol)
}

// Order returns the selected order; the zero order before training.
func (p *Predictor) Order() models.ModelOrder {
	return p.search.Order
}

// Volatility returns the blended volatility estimate of the training series.
func (p *Predictor) Volatility() VolatilityEstimate {
	return p.vol
}
