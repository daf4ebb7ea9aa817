package forecast

import (
	"context"
	"sync/atomic"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/pkg/util"
)

type fakeModel struct {
	order     models.ModelOrder
	aic, bic  float64
	residuals []float64
	fitted    []float64
	nObs      int
	nAR, nMA  int
	level     float64
	halfWidth float64
	fcErr     error
}

func (m *fakeModel) Order() models.ModelOrder { return m.order }
func (m *fakeModel) AIC() float64             { return m.aic }
func (m *fakeModel) BIC() float64             { return m.bic }
func (m *fakeModel) Residuals() []float64     { return m.residuals }
func (m *fakeModel) FittedValues() []float64  { return m.fitted }
func (m *fakeModel) NumAR() int               { return m.nAR }
func (m *fakeModel) NumMA() int               { return m.nMA }
func (m *fakeModel) NumObs() int              { return m.nObs }

func (m *fakeModel) Forecast(_ context.Context, steps int) (models.ModelForecast, error) {
	if m.fcErr != nil {
		return models.ModelForecast{}, m.fcErr
	}
	fc := models.ModelForecast{
		Mean:  make([]float64, steps),
		Lower: make([]float64, steps),
		Upper: make([]float64, steps),
	}
	for i := 0; i < steps; i++ {
		fc.Mean[i] = m.level
		fc.Lower[i] = m.level - m.halfWidth
		fc.Upper[i] = m.level + m.halfWidth
	}
	return fc, nil
}

// fitFunc adapts a function to service.ModelFitter and counts calls.
type fitFunc struct {
	fn    func(series []float64, order models.ModelOrder) (service.FittedModel, error)
	delay func(order models.ModelOrder) time.Duration
	calls int32
}

func (f *fitFunc) Fit(ctx context.Context, series []float64, order models.ModelOrder) (service.FittedModel, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(order)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.fn(series, order)
}

// flatModel fits a series perfectly: zero residuals, fitted equal to the data.
func flatModel(series []float64, order models.ModelOrder) *fakeModel {
	fitted := append([]float64(nil), series...)
	return &fakeModel{
		order:     order,
		aic:       -100,
		residuals: make([]float64, len(series)-1),
		fitted:    fitted,
		nObs:      len(series),
		nAR:       order.P,
		nMA:       order.Q,
		level:     series[len(series)-1],
	}
}

var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// businessRecords lays prices on consecutive business days starting at from.
func businessRecords(from time.Time, prices ...float64) []models.PriceRecord {
	out := make([]models.PriceRecord, len(prices))
	d := from
	for i, p := range prices {
		out[i] = models.PriceRecord{Date: util.FormatDate(d), Close: p}
		d = util.NextBusinessDay(d)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
