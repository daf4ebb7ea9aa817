package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/internal/services/forecast"
	applogger "PriceCast/pkg/logger"
	pkgmetrics "PriceCast/pkg/metrics"
	"PriceCast/pkg/util"
)

const modelType = "ARIMA"

var (
	// ErrInvalidRequest marks parameters rejected before any work is done.
	ErrInvalidRequest = errors.New("invalid forecast request")
	// ErrHistoryTooShort is returned when the provider has fewer records than required.
	ErrHistoryTooShort = errors.New("not enough history")
	// ErrHistoryUnavailable wraps provider failures other than an unknown symbol.
	ErrHistoryUnavailable = errors.New("history unavailable")
)

// ForecastSettings are the per-request knobs of the forecasting pipeline.
type ForecastSettings struct {
	Grid            forecast.Grid
	Workers         int
	SearchTimeout   time.Duration
	MinObservations int
	DefaultDays     int
	MaxDays         int
	DefaultPeriod   string
}

type ForecastParams struct {
	Symbol string
	Days   int
	Period string
}

// ForecastUseCase fetches history and runs a fresh Predictor per request.
type ForecastUseCase struct {
	history   domrepo.HistoryProvider
	fitter    domsvc.ModelFitter
	publisher domrepo.ForecastPublisher
	metrics   domrepo.Metrics
	settings  ForecastSettings
	l         *applogger.Logger
	now       func() time.Time
}

func NewForecastUseCase(
	history domrepo.HistoryProvider,
	fitter domsvc.ModelFitter,
	publisher domrepo.ForecastPublisher,
	metrics domrepo.Metrics,
	settings ForecastSettings,
	l *applogger.Logger,
) *ForecastUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ForecastUseCase{
		history:   history,
		fitter:    fitter,
		publisher: publisher,
		metrics:   metrics,
		settings:  settings,
		l:         l,
		now:       time.Now,
	}
}

// Forecast loads the symbol's history for the period and forecasts p.Days
// business days. Histories shorter than MinObservations are rejected.
func (uc *ForecastUseCase) Forecast(ctx context.Context, p ForecastParams) (*models.ForecastResult, error) {
	symbol := util.NormalizeSymbol(p.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	days, err := uc.days(p.Days)
	if err != nil {
		return nil, err
	}
	period := p.Period
	if period == "" {
		period = uc.settings.DefaultPeriod
	}

	start := time.Now()
	records, err := uc.history.GetDailyHistory(ctx, symbol, period)
	uc.metrics.RecordLatency("history", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("history")
		if errors.Is(err, domrepo.ErrSymbolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, domrepo.ErrSymbolNotFound)
	}
	if len(records) < uc.settings.MinObservations {
		uc.metrics.RecordError("history_too_short")
		return nil, fmt.Errorf("%w: %s has %d daily records, need at least %d",
			ErrHistoryTooShort, symbol, len(records), uc.settings.MinObservations)
	}

	return uc.run(ctx, symbol, days, records)
}

// ForecastRecords forecasts caller-supplied records. Only the core's own
// minimum of two business days applies.
func (uc *ForecastUseCase) ForecastRecords(ctx context.Context, symbol string, days int, records []models.PriceRecord) (*models.ForecastResult, error) {
	d, err := uc.days(days)
	if err != nil {
		return nil, err
	}
	if symbol = util.NormalizeSymbol(symbol); symbol == "" {
		symbol = "CUSTOM"
	}
	return uc.run(ctx, symbol, d, records)
}

func (uc *ForecastUseCase) days(days int) (int, error) {
	if days == 0 {
		days = uc.settings.DefaultDays
	}
	if days < 1 || (uc.settings.MaxDays > 0 && days > uc.settings.MaxDays) {
		return 0, fmt.Errorf("%w: days must be in [1, %d], got %d", ErrInvalidRequest, uc.settings.MaxDays, days)
	}
	return days, nil
}

func (uc *ForecastUseCase) run(ctx context.Context, symbol string, days int, records []models.PriceRecord) (*models.ForecastResult, error) {
	start := time.Now()
	l := uc.l.With(applogger.String("symbol", symbol))
	p := forecast.NewPredictor(uc.fitter,
		forecast.WithGrid(uc.settings.Grid),
		forecast.WithWorkers(uc.settings.Workers),
		forecast.WithLogger(l),
	)

	trainCtx, cancel := ctx, context.CancelFunc(func() {})
	if uc.settings.SearchTimeout > 0 {
		trainCtx, cancel = context.WithTimeout(ctx, uc.settings.SearchTimeout)
	}
	err := p.Train(trainCtx, records)
	cancel()
	if err != nil {
		return nil, uc.fail(l, "train", err)
	}

	points, err := p.PredictNextDays(ctx, days)
	if err != nil {
		return nil, uc.fail(l, "predict", err)
	}
	metrics, err := p.ModelMetrics()
	if err != nil {
		return nil, uc.fail(l, "metrics", err)
	}

	res := &models.ForecastResult{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		ModelType:    modelType,
		Order:        p.Order(),
		ForecastDays: days,
		Predictions:  roundPoints(points),
		Metrics:      roundMetrics(metrics),
		GeneratedAt:  uc.now().UTC(),
	}

	uc.metrics.RecordForecast(symbol, res.Order)
	uc.metrics.RecordLastPrice(symbol, metrics.LastKnownPrice)
	uc.metrics.RecordLatency("forecast", time.Since(start).Seconds())

	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, res); err != nil {
			uc.metrics.RecordError("publish")
			l.Warn("forecast publish failed", applogger.String("id", res.ID), applogger.Error(err))
		}
	}

	l.Info("forecast completed",
		applogger.String("id", res.ID),
		applogger.String("order", res.Order.String()),
		applogger.Int("days", days),
		applogger.Duration("duration_ms", time.Since(start)))
	return res, nil
}

func (uc *ForecastUseCase) fail(l *applogger.Logger, step string, err error) error {
	kind := ErrorKind(err)
	uc.metrics.RecordError(kind)
	if kind == "internal" || kind == "model_selection" {
		l.Error("forecast failed", applogger.String("step", step), applogger.String("kind", kind), applogger.Error(err))
	} else {
		l.Debug("forecast rejected", applogger.String("step", step), applogger.String("kind", kind), applogger.Error(err))
	}
	return err
}

// ErrorKind maps an error to a stable metrics label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, forecast.ErrInsufficientData), errors.Is(err, ErrHistoryTooShort):
		return "insufficient_data"
	case errors.Is(err, forecast.ErrData):
		return "data"
	case errors.Is(err, forecast.ErrVolatility):
		return "volatility"
	case errors.Is(err, forecast.ErrModelSelection):
		return "model_selection"
	case errors.Is(err, forecast.ErrMetrics):
		return "metrics"
	case errors.Is(err, forecast.ErrNotTrained), errors.Is(err, forecast.ErrPredictorUsed):
		return "state"
	case errors.Is(err, domrepo.ErrSymbolNotFound):
		return "symbol_not_found"
	case errors.Is(err, ErrHistoryUnavailable):
		return "history"
	default:
		return "internal"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func roundPoints(points []models.ForecastPoint) []models.ForecastPoint {
	out := make([]models.ForecastPoint, len(points))
	for i, p := range points {
		p.PredictedPrice = round2(p.PredictedPrice)
		p.LowerBound = round2(p.LowerBound)
		p.UpperBound = round2(p.UpperBound)
		p.Confidence = round2(p.Confidence)
		p.Volatility = round4(p.Volatility)
		out[i] = p
	}
	return out
}

func roundMetrics(m models.ModelMetrics) models.ModelMetrics {
	m.AIC = round2(m.AIC)
	m.BIC = round2(m.BIC)
	m.RMSE = round4(m.RMSE)
	m.MAE = round4(m.MAE)
	m.Accuracy = round4(m.Accuracy)
	m.Volatility = round4(m.Volatility)
	m.LastKnownPrice = round2(m.LastKnownPrice)
	return m
}
