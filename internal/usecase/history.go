package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/services/features"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

const notAvailable = "N/A"

// HistoryUseCase serves raw daily history and a short summary of it.
type HistoryUseCase struct {
	history domrepo.HistoryProvider
	store   domrepo.DailyBarWriter
	quotes  domrepo.QuoteProvider
	l       *applogger.Logger
}

// NewHistoryUseCase creates the use case. store may be nil when no bar
// database is configured; Ingest then fails.
func NewHistoryUseCase(history domrepo.HistoryProvider, store domrepo.DailyBarWriter, l *applogger.Logger) *HistoryUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &HistoryUseCase{history: history, store: store, l: l}
}

// WithQuotes sets the provider consulted for listing details in GetSummary.
func (uc *HistoryUseCase) WithQuotes(q domrepo.QuoteProvider) *HistoryUseCase {
	uc.quotes = q
	return uc
}

// HistorySummary describes a close series at a glance.
type HistorySummary struct {
	Count       int     `json:"count"`
	FirstDate   string  `json:"first_date,omitempty"`
	LastDate    string  `json:"last_date,omitempty"`
	FirstClose  float64 `json:"first_close,omitempty"`
	LastClose   float64 `json:"last_close,omitempty"`
	TotalReturn float64 `json:"total_return"`
	Volatility  float64 `json:"volatility"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

type HistoryResult struct {
	models.HistoricalData
	Summary HistorySummary `json:"summary"`
}

// GetHistory returns the records for period sorted by date, with a summary.
// Records with unparseable dates are dropped.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, symbol, period string) (*HistoryResult, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	p := domrepo.NormalizePeriod(period)

	raw, err := uc.history.GetDailyHistory(ctx, symbol, string(p))
	if err != nil {
		if errors.Is(err, domrepo.ErrSymbolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, domrepo.ErrSymbolNotFound)
	}

	records := sortRecords(raw)
	return &HistoryResult{
		HistoricalData: models.HistoricalData{Symbol: symbol, Period: string(p), Records: records},
		Summary:        summarize(records),
	}, nil
}

// GetSummary returns listing details together with the period's history.
// A failing quote lookup is logged and the summary falls back to the last
// close in USD; only history errors fail the call.
func (uc *HistoryUseCase) GetSummary(ctx context.Context, symbol, period string) (*models.StockSummary, error) {
	res, err := uc.GetHistory(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", res.Symbol, domrepo.ErrSymbolNotFound)
	}
	out := &models.StockSummary{
		Symbol:         res.Symbol,
		CompanyName:    res.Symbol,
		Sector:         notAvailable,
		Industry:       notAvailable,
		CurrentPrice:   res.Records[len(res.Records)-1].Close,
		Currency:       "USD",
		HistoricalData: res.Records,
	}
	if uc.quotes == nil {
		return out, nil
	}
	q, err := uc.quotes.GetQuote(ctx, res.Symbol)
	if err != nil {
		uc.l.Warn("quote lookup failed", applogger.String("symbol", res.Symbol), applogger.Error(err))
		return out, nil
	}
	if q.Name != "" {
		out.CompanyName = q.Name
	}
	if q.Price > 0 {
		out.CurrentPrice = q.Price
	}
	if q.Currency != "" {
		out.Currency = q.Currency
	}
	out.Exchange = q.Exchange
	return out, nil
}

// Ingest copies history from the provider into the bar store.
func (uc *HistoryUseCase) Ingest(ctx context.Context, symbol, period string) (int, error) {
	if uc.store == nil {
		return 0, errors.New("no bar store configured")
	}
	res, err := uc.GetHistory(ctx, symbol, period)
	if err != nil {
		return 0, err
	}
	n, err := uc.store.SaveDailyBars(ctx, res.Symbol, res.Records)
	if err != nil {
		return n, fmt.Errorf("ingest %s: %w", res.Symbol, err)
	}
	uc.l.Info("history ingested",
		applogger.String("symbol", res.Symbol),
		applogger.String("period", res.Period),
		applogger.Int("rows", n))
	return n, nil
}

func sortRecords(raw []models.PriceRecord) []models.PriceRecord {
	type dated struct {
		key string
		rec models.PriceRecord
	}
	tmp := make([]dated, 0, len(raw))
	for _, r := range raw {
		d, ok := util.ParseDate(r.Date)
		if !ok {
			continue
		}
		tmp = append(tmp, dated{key: util.FormatDate(d), rec: r})
	}
	sort.SliceStable(tmp, func(i, j int) bool { return tmp[i].key < tmp[j].key })

	out := make([]models.PriceRecord, len(tmp))
	for i, t := range tmp {
		t.rec.Date = t.key
		out[i] = t.rec
	}
	return out
}

func summarize(records []models.PriceRecord) HistorySummary {
	s := HistorySummary{Count: len(records)}
	if len(records) == 0 {
		return s
	}
	closes := make([]float64, len(records))
	for i, r := range records {
		closes[i] = r.Close
	}
	first, last := records[0], records[len(records)-1]
	s.FirstDate, s.LastDate = first.Date, last.Date
	s.FirstClose, s.LastClose = first.Close, last.Close
	if first.Close > 0 {
		s.TotalReturn = round4(last.Close/first.Close - 1)
	}
	rets := features.LogReturns(closes)
	s.Volatility = round4(features.RealizedVolatility(rets, len(rets), 252))
	s.MaxDrawdown = round4(features.MaxDrawdown(closes))
	return s
}
