package models

import (
	"fmt"
	"time"
)

// PriceRecord is one raw daily bar as supplied by a history provider or a caller.
// Date may be "2006-01-02", RFC3339 or unix seconds; only the date portion is used.
// High and Low are optional and treated as absent when zero.
type PriceRecord struct {
	Date   string  `json:"date" validate:"required"`
	Open   float64 `json:"open,omitempty"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close" validate:"gt=0"`
	Volume float64 `json:"volume,omitempty"`
}

// HistoricalData is a symbol's daily price history.
type HistoricalData struct {
	Symbol  string        `json:"symbol"`
	Period  string        `json:"period"`
	Records []PriceRecord `json:"data"`
}

// StockQuote is a symbol's latest price and listing details.
type StockQuote struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name,omitempty"`
	Exchange string  `json:"exchange,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Price    float64 `json:"price"`
}

// StockSummary combines listing details with the symbol's daily history.
// Fields no provider supplies are "N/A" or zero.
type StockSummary struct {
	Symbol         string        `json:"symbol"`
	CompanyName    string        `json:"company_name"`
	Sector         string        `json:"sector"`
	Industry       string        `json:"industry"`
	MarketCap      float64       `json:"market_cap"`
	CurrentPrice   float64       `json:"current_price"`
	Currency       string        `json:"currency"`
	Exchange       string        `json:"exchange,omitempty"`
	HistoricalData []PriceRecord `json:"historical_data"`
}

// ModelOrder is an ARIMA (p, d, q) order.
type ModelOrder struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

func (o ModelOrder) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// ModelForecast holds a fitted model's native point forecasts and 95% bounds.
type ModelForecast struct {
	Mean  []float64
	Lower []float64
	Upper []float64
}

// ForecastPoint is one forecasted business day.
type ForecastPoint struct {
	Day            int       `json:"day"`
	Date           time.Time `json:"date"`
	PredictedPrice float64   `json:"predicted_price"`
	LowerBound     float64   `json:"lower_bound"`
	UpperBound     float64   `json:"upper_bound"`
	Confidence     float64   `json:"confidence"`
	Volatility     float64   `json:"volatility"`
}

// ModelMetrics are in-sample fit diagnostics of the model behind a forecast.
type ModelMetrics struct {
	Order          ModelOrder `json:"order"`
	AIC            float64    `json:"aic"`
	BIC            float64    `json:"bic"`
	RMSE           float64    `json:"rmse"`
	MAE            float64    `json:"mae"`
	Accuracy       float64    `json:"accuracy"`
	Volatility     float64    `json:"volatility"`
	LastKnownPrice float64    `json:"last_known_price"`
	LastDate       time.Time  `json:"last_date"`
}

// ForecastResult is the full outcome of one forecast request.
type ForecastResult struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	ModelType    string          `json:"model_type"`
	Order        ModelOrder      `json:"order"`
	ForecastDays int             `json:"forecast_days"`
	Predictions  []ForecastPoint `json:"predictions"`
	Metrics      ModelMetrics    `json:"metrics"`
	GeneratedAt  time.Time       `json:"generated_at"`
}
