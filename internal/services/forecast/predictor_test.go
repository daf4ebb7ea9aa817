package forecast

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	applogger "PriceCast/pkg/logger"
)

func flatFitter() *fitFunc {
	return &fitFunc{fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
		m := flatModel(series, o)
		m.aic = float64(o.P + o.D + o.Q)
		return m, nil
	}}
}

func TestPredictorNotTrained(t *testing.T) {
	p := NewPredictor(flatFitter())

	_, err := p.PredictNextDays(context.Background(), 5)
	assert.True(t, errors.Is(err, ErrNotTrained))

	_, err = p.ModelMetrics()
	assert.True(t, errors.Is(err, ErrNotTrained))
}

func TestPredictorConstantSeries(t *testing.T) {
	var logs bytes.Buffer
	p := NewPredictor(flatFitter(), WithWorkers(2), WithLogger(applogger.NewWriter(&logs, "debug")))
	require.NoError(t, p.Train(context.Background(), businessRecords(monday, constant(300, 100)...)))

	assert.Equal(t, models.ModelOrder{}, p.Order())
	assert.Equal(t, 0.0, p.Volatility().Blended)
	assert.Contains(t, logs.String(), "predictor trained")

	pts, err := p.PredictNextDays(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pts, 10)
	for _, pt := range pts {
		assert.Equal(t, 100.0, pt.PredictedPrice)
		assert.Equal(t, 100.0, pt.LowerBound)
		assert.Equal(t, 100.0, pt.UpperBound)
		assert.Equal(t, 0.0, pt.Volatility)
		assert.GreaterOrEqual(t, pt.Confidence, 0.70)
		assert.LessOrEqual(t, pt.Confidence, 0.95)
	}

	// forecasting is repeatable
	again, err := p.PredictNextDays(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, pts, again)

	m, err := p.ModelMetrics()
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.RMSE)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 100.0, m.LastKnownPrice)
}

func TestPredictorIsSingleUse(t *testing.T) {
	p := NewPredictor(flatFitter())
	recs := businessRecords(monday, 100, 101, 102, 101)
	require.NoError(t, p.Train(context.Background(), recs))

	err := p.Train(context.Background(), recs)
	assert.True(t, errors.Is(err, ErrPredictorUsed))

	// the first training is still usable
	_, err = p.PredictNextDays(context.Background(), 1)
	assert.NoError(t, err)
}

func TestPredictorFailedTrainKeepsNothing(t *testing.T) {
	p := NewPredictor(flatFitter())
	err := p.Train(context.Background(), []models.PriceRecord{{Date: "2024-01-01", Close: 100}})
	require.True(t, errors.Is(err, ErrInsufficientData))

	_, err = p.PredictNextDays(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrNotTrained))

	err = p.Train(context.Background(), businessRecords(monday, 100, 101, 102))
	assert.True(t, errors.Is(err, ErrPredictorUsed))
}

func TestPredictorVolatilityFailureAbortsTrain(t *testing.T) {
	f := flatFitter()
	p := NewPredictor(f)
	err := p.Train(context.Background(), businessRecords(monday, 100, 101))
	require.True(t, errors.Is(err, ErrVolatility))
	assert.EqualValues(t, 0, f.calls)
}

func TestPredictorRejectsBadHorizon(t *testing.T) {
	p := NewPredictor(flatFitter(), WithGrid(Grid{PMax: 1, DMax: 1, QMax: 0}))
	require.NoError(t, p.Train(context.Background(), businessRecords(monday, 100, 101, 102, 103)))

	_, err := p.PredictNextDays(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrData))
}
