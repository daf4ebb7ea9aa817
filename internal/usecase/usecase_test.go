package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/internal/services/forecast"
	pkgmetrics "PriceCast/pkg/metrics"
	"PriceCast/pkg/util"
)

// stubModel forecasts the last observation with a fixed band.
type stubModel struct {
	order  models.ModelOrder
	series []float64
}

func (m *stubModel) Order() models.ModelOrder { return m.order }
func (m *stubModel) AIC() float64             { return float64(m.order.P + m.order.D + m.order.Q) }
func (m *stubModel) BIC() float64             { return m.AIC() + 1 }
func (m *stubModel) NumAR() int               { return m.order.P }
func (m *stubModel) NumMA() int               { return m.order.Q }
func (m *stubModel) NumObs() int              { return len(m.series) }

func (m *stubModel) Residuals() []float64 {
	out := make([]float64, len(m.series)-1)
	for i := range out {
		out[i] = m.series[i+1] - m.series[i]
	}
	return out
}

func (m *stubModel) FittedValues() []float64 {
	out := make([]float64, len(m.series))
	out[0] = m.series[0]
	copy(out[1:], m.series[:len(m.series)-1])
	return out
}

func (m *stubModel) Forecast(_ context.Context, steps int) (models.ModelForecast, error) {
	last := m.series[len(m.series)-1]
	f := models.ModelForecast{Mean: make([]float64, steps), Lower: make([]float64, steps), Upper: make([]float64, steps)}
	for i := range f.Mean {
		f.Mean[i], f.Lower[i], f.Upper[i] = last, last-1, last+1
	}
	return f, nil
}

type stubFitter struct{}

func (stubFitter) Fit(ctx context.Context, series []float64, order models.ModelOrder) (domsvc.FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &stubModel{order: order, series: series}, nil
}

type memHistory struct {
	records []models.PriceRecord
	err     error
	period  string
}

func (h *memHistory) GetDailyHistory(_ context.Context, _ string, period string) ([]models.PriceRecord, error) {
	h.period = period
	return h.records, h.err
}

type memPublisher struct {
	mu  sync.Mutex
	got []*models.ForecastResult
	err error
}

func (p *memPublisher) Publish(_ context.Context, r *models.ForecastResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, r)
	return p.err
}

func (p *memPublisher) Close() error { return nil }

func businessRecords(n int) []models.PriceRecord {
	out := make([]models.PriceRecord, 0, n)
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, models.PriceRecord{Date: util.FormatDate(d), Close: 100 + 5*math.Sin(float64(i)/7)})
		d = util.NextBusinessDay(d)
	}
	return out
}

func settings() ForecastSettings {
	return ForecastSettings{
		Grid:            forecast.DefaultGrid(),
		Workers:         2,
		SearchTimeout:   5 * time.Second,
		MinObservations: 252,
		DefaultDays:     30,
		MaxDays:         365,
		DefaultPeriod:   "1y",
	}
}

func TestForecastPublishesRoundedResult(t *testing.T) {
	hist := &memHistory{records: businessRecords(260)}
	pub := &memPublisher{}
	uc := NewForecastUseCase(hist, stubFitter{}, pub, pkgmetrics.Nop{}, settings(), nil)

	res, err := uc.Forecast(context.Background(), ForecastParams{Symbol: " aapl ", Days: 5})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, "1y", hist.period)
	assert.Equal(t, "ARIMA", res.ModelType)
	assert.Equal(t, models.ModelOrder{}, res.Order)
	assert.NotEmpty(t, res.ID)
	require.Len(t, res.Predictions, 5)
	for i, p := range res.Predictions {
		assert.Equal(t, i+1, p.Day)
		assert.Equal(t, p.PredictedPrice, math.Round(p.PredictedPrice*100)/100)
		assert.LessOrEqual(t, p.LowerBound, p.PredictedPrice)
		assert.GreaterOrEqual(t, p.UpperBound, p.PredictedPrice)
		assert.GreaterOrEqual(t, p.Confidence, 0.70)
		assert.LessOrEqual(t, p.Confidence, 0.95)
	}
	require.Len(t, pub.got, 1)
	assert.Same(t, res, pub.got[0])
}

func TestForecastDefaultsDays(t *testing.T) {
	uc := NewForecastUseCase(&memHistory{records: businessRecords(260)}, stubFitter{}, nil, nil, settings(), nil)
	res, err := uc.Forecast(context.Background(), ForecastParams{Symbol: "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 30, res.ForecastDays)
	assert.Len(t, res.Predictions, 30)
}

func TestForecastRejectsShortHistory(t *testing.T) {
	uc := NewForecastUseCase(&memHistory{records: businessRecords(100)}, stubFitter{}, nil, nil, settings(), nil)
	_, err := uc.Forecast(context.Background(), ForecastParams{Symbol: "AAPL", Days: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHistoryTooShort)
	assert.Equal(t, "insufficient_data", ErrorKind(err))
}

func TestForecastRejectsDaysOutOfRange(t *testing.T) {
	uc := NewForecastUseCase(&memHistory{records: businessRecords(260)}, stubFitter{}, nil, nil, settings(), nil)
	for _, d := range []int{-1, 366} {
		_, err := uc.Forecast(context.Background(), ForecastParams{Symbol: "AAPL", Days: d})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestForecastHistoryErrors(t *testing.T) {
	notFound := &memHistory{err: domrepo.ErrSymbolNotFound}
	uc := NewForecastUseCase(notFound, stubFitter{}, nil, nil, settings(), nil)
	_, err := uc.Forecast(context.Background(), ForecastParams{Symbol: "ZZZZ", Days: 5})
	assert.ErrorIs(t, err, domrepo.ErrSymbolNotFound)

	down := &memHistory{err: errors.New("timeout")}
	uc = NewForecastUseCase(down, stubFitter{}, nil, nil, settings(), nil)
	_, err = uc.Forecast(context.Background(), ForecastParams{Symbol: "AAPL", Days: 5})
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
	assert.Equal(t, "history", ErrorKind(err))

	empty := &memHistory{}
	uc = NewForecastUseCase(empty, stubFitter{}, nil, nil, settings(), nil)
	_, err = uc.Forecast(context.Background(), ForecastParams{Symbol: "AAPL", Days: 5})
	assert.ErrorIs(t, err, domrepo.ErrSymbolNotFound)
}

func TestForecastRecordsSkipsMinimumHistory(t *testing.T) {
	uc := NewForecastUseCase(&memHistory{}, stubFitter{}, nil, nil, settings(), nil)
	res, err := uc.ForecastRecords(context.Background(), "", 3, businessRecords(10))
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM", res.Symbol)
	assert.Len(t, res.Predictions, 3)
}

func TestForecastRecordsPropagatesCoreErrors(t *testing.T) {
	uc := NewForecastUseCase(&memHistory{}, stubFitter{}, nil, nil, settings(), nil)
	_, err := uc.ForecastRecords(context.Background(), "X", 3, businessRecords(1))
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
	assert.Equal(t, "insufficient_data", ErrorKind(err))
}

func TestForecastPublishFailureIsNotFatal(t *testing.T) {
	pub := &memPublisher{err: errors.New("broker down")}
	uc := NewForecastUseCase(&memHistory{records: businessRecords(260)}, stubFitter{}, pub, nil, settings(), nil)
	_, err := uc.Forecast(context.Background(), ForecastParams{Symbol: "AAPL", Days: 2})
	assert.NoError(t, err)
}

func TestHistoryUseCaseSortsAndSummarizes(t *testing.T) {
	recs := []models.PriceRecord{
		{Date: "2024-01-03", Close: 90},
		{Date: "2024-01-02T00:00:00Z", Close: 100},
		{Date: "garbage", Close: 1},
		{Date: "2024-01-04", Close: 110},
	}
	uc := NewHistoryUseCase(&memHistory{records: recs}, nil, nil)

	res, err := uc.GetHistory(context.Background(), "aapl", "bogus")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, "1y", res.Period)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "2024-01-02", res.Records[0].Date)
	assert.Equal(t, 3, res.Summary.Count)
	assert.InDelta(t, 0.10, res.Summary.TotalReturn, 1e-9)
	assert.InDelta(t, 0.10, res.Summary.MaxDrawdown, 1e-9)
	assert.Greater(t, res.Summary.Volatility, 0.0)
}

type memBarStore struct{ saved []models.PriceRecord }

func (m *memBarStore) SaveDailyBars(_ context.Context, _ string, recs []models.PriceRecord) (int, error) {
	m.saved = append(m.saved, recs...)
	return len(recs), nil
}

func TestHistoryIngest(t *testing.T) {
	store := &memBarStore{}
	uc := NewHistoryUseCase(&memHistory{records: businessRecords(5)}, store, nil)
	n, err := uc.Ingest(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, store.saved, 5)

	_, err = NewHistoryUseCase(&memHistory{}, nil, nil).Ingest(context.Background(), "AAPL", "1mo")
	assert.Error(t, err)
}

type memQuotes struct {
	quote *models.StockQuote
	err   error
}

func (q memQuotes) GetQuote(context.Context, string) (*models.StockQuote, error) {
	return q.quote, q.err
}

func TestHistorySummaryUsesQuote(t *testing.T) {
	hist := &memHistory{records: businessRecords(5)}
	uc := NewHistoryUseCase(hist, nil, nil).WithQuotes(memQuotes{quote: &models.StockQuote{
		Symbol: "IBM", Name: "International Business Machines", Exchange: "NYSE", Currency: "USD", Price: 171.5,
	}})

	s, err := uc.GetSummary(context.Background(), "ibm", "1mo")
	require.NoError(t, err)
	assert.Equal(t, "IBM", s.Symbol)
	assert.Equal(t, "International Business Machines", s.CompanyName)
	assert.Equal(t, "N/A", s.Sector)
	assert.Equal(t, "N/A", s.Industry)
	assert.Zero(t, s.MarketCap)
	assert.Equal(t, 171.5, s.CurrentPrice)
	assert.Equal(t, "NYSE", s.Exchange)
	assert.Len(t, s.HistoricalData, 5)
	assert.Equal(t, "1mo", hist.period)
}

func TestHistorySummaryFallsBackWithoutQuote(t *testing.T) {
	recs := businessRecords(5)
	for _, q := range []domrepo.QuoteProvider{nil, memQuotes{err: errors.New("timeout")}} {
		uc := NewHistoryUseCase(&memHistory{records: recs}, nil, nil).WithQuotes(q)
		s, err := uc.GetSummary(context.Background(), "IBM", "1mo")
		require.NoError(t, err)
		assert.Equal(t, "IBM", s.CompanyName)
		assert.Equal(t, "USD", s.Currency)
		assert.Equal(t, recs[4].Close, s.CurrentPrice)
	}

	_, err := NewHistoryUseCase(&memHistory{err: domrepo.ErrSymbolNotFound}, nil, nil).GetSummary(context.Background(), "NOPE", "1y")
	assert.ErrorIs(t, err, domrepo.ErrSymbolNotFound)
}

func TestKafkaForecastHandler(t *testing.T) {
	pub := &memPublisher{}
	uc := NewForecastUseCase(&memHistory{records: businessRecords(260)}, stubFitter{}, pub, nil, settings(), nil)
	h := NewKafkaForecastHandler("requests", uc, nil, nil)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL","days":3}`)))
	require.Len(t, pub.got, 1)
	assert.Equal(t, 3, pub.got[0].ForecastDays)

	assert.NoError(t, h.Handle(context.Background(), []byte(`not json`)))
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"days":3}`)))
	assert.Len(t, pub.got, 1)

	down := NewForecastUseCase(&memHistory{err: errors.New("timeout")}, stubFitter{}, pub, nil, settings(), nil)
	err := NewKafkaForecastHandler("requests", down, nil, nil).Handle(context.Background(), []byte(`{"symbol":"AAPL"}`))
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}
