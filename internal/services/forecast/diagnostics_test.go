package forecast

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnoseMetrics(t *testing.T) {
	s := seriesOf(100, 102, 101, 104)
	s.LastDate = monday
	m := &fakeModel{
		order:     FallbackOrder,
		aic:       12.5,
		bic:       14.25,
		fitted:    []float64{100, 101, 103, 103},
		residuals: []float64{1, -2, 1},
	}

	got, err := Diagnose(m, s, VolatilityEstimate{Blended: 0.2})
	require.NoError(t, err)

	assert.Equal(t, FallbackOrder, got.Order)
	assert.Equal(t, 12.5, got.AIC)
	assert.Equal(t, 14.25, got.BIC)
	assert.InDelta(t, math.Sqrt((1+4+1)/3.0), got.RMSE, 1e-12)
	assert.InDelta(t, 4.0/3.0, got.MAE, 1e-12)
	assert.InDelta(t, 1-(4.0/3.0)/104, got.Accuracy, 1e-12)
	assert.Equal(t, 0.2, got.Volatility)
	assert.Equal(t, 104.0, got.LastKnownPrice)
	assert.Equal(t, monday, got.LastDate)
}

func TestDiagnoseWithoutModel(t *testing.T) {
	_, err := Diagnose(nil, seriesOf(1, 2), VolatilityEstimate{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMetrics))

	_, err = Diagnose(&fakeModel{fitted: []float64{1}}, seriesOf(1, 2), VolatilityEstimate{})
	assert.True(t, errors.Is(err, ErrMetrics))
}
