package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"PriceCast/pkg/util"
)

func TestForecastStepsRejectsEmptyHorizon(t *testing.T) {
	m := flatModel(constant(10, 100), FallbackOrder)
	for _, days := range []int{0, -3} {
		_, err := ForecastSteps(context.Background(), m, monday, days)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrData))
	}
}

func TestForecastStepsDatesFollowAnchor(t *testing.T) {
	friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	m := flatModel(constant(10, 100), FallbackOrder)

	steps, err := ForecastSteps(context.Background(), m, friday, 6)
	require.NoError(t, err)
	require.Len(t, steps, 6)

	want := []string{"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12", "2024-01-15"}
	for i, st := range steps {
		assert.Equal(t, i+1, st.Day)
		assert.Equal(t, want[i], util.FormatDate(st.Date))
	}
}

func TestForecastStepsModelUncertainty(t *testing.T) {
	m := &fakeModel{
		residuals: []float64{1, -1, 1, -1, 2, -2},
		nObs:      100,
		nAR:       2,
		nMA:       1,
		level:     50,
		halfWidth: 3,
	}
	steps, err := ForecastSteps(context.Background(), m, monday, 5)
	require.NoError(t, err)

	rmse := math.Sqrt((1 + 1 + 1 + 1 + 4 + 4) / 6.0)
	tcrit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 96}.Quantile(0.975)
	for _, st := range steps {
		h := float64(st.Day)
		want := tcrit * rmse * math.Sqrt(1+h/100+h*(h-1)/200)
		assert.InDelta(t, want, st.ModelUncertainty, 1e-9)
		assert.Equal(t, 50.0, st.Mean)
		assert.Equal(t, 47.0, st.NativeLower)
		assert.Equal(t, 53.0, st.NativeUpper)
	}
	for i := 1; i < len(steps); i++ {
		assert.Greater(t, steps[i].ModelUncertainty, steps[i-1].ModelUncertainty)
	}
}

func TestDegreesOfFreedomFloor(t *testing.T) {
	assert.Equal(t, 1, DegreesOfFreedom(&fakeModel{nObs: 3, nAR: 2, nMA: 2}))
	assert.Equal(t, 1, DegreesOfFreedom(&fakeModel{nObs: 4, nAR: 2, nMA: 1}))
	assert.Equal(t, 6, DegreesOfFreedom(&fakeModel{nObs: 10, nAR: 2, nMA: 1}))
}

func TestForecastStepsPropagatesModelFailure(t *testing.T) {
	boom := errors.New("singular")
	m := &fakeModel{nObs: 10, fcErr: boom}
	_, err := ForecastSteps(context.Background(), m, monday, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
