package repository

import (
	"context"
	"errors"

	"PriceCast/internal/domain/models"
)

// ErrSymbolNotFound is returned by providers that know no history for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// HistoryProvider supplies raw daily price records for a symbol.
type HistoryProvider interface {
	GetDailyHistory(ctx context.Context, symbol, period string) ([]models.PriceRecord, error)
}

// QuoteProvider supplies a symbol's latest quote and listing details.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error)
}

// DailyBarWriter persists daily bars, e.g. when backfilling ClickHouse.
type DailyBarWriter interface {
	SaveDailyBars(ctx context.Context, symbol string, records []models.PriceRecord) (int, error)
}

// ForecastPublisher emits finished forecasts to downstream consumers.
type ForecastPublisher interface {
	Publish(ctx context.Context, res *models.ForecastResult) error
	Close() error
}

// Metrics records service-level counters and latencies.
type Metrics interface {
	RecordForecast(symbol string, order models.ModelOrder)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
