package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
)

var errNoConverge = errors.New("did not converge")

func TestGridOrdersEnumeration(t *testing.T) {
	orders := DefaultGrid().Orders()
	require.Len(t, orders, 18)
	assert.Equal(t, models.ModelOrder{P: 0, D: 0, Q: 0}, orders[0])
	assert.Equal(t, models.ModelOrder{P: 0, D: 0, Q: 1}, orders[1])
	assert.Equal(t, models.ModelOrder{P: 0, D: 1, Q: 0}, orders[3])
	assert.Equal(t, models.ModelOrder{P: 2, D: 1, Q: 2}, orders[17])
}

func TestSearchOrderPicksLowestAICAndReusesFit(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	var chosen service.FittedModel
	f := &fitFunc{fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
		m := flatModel(series, o)
		m.aic = float64(10 + o.P + o.D + o.Q)
		if o == (models.ModelOrder{P: 2, D: 0, Q: 1}) {
			m.aic = 1
			chosen = m
		}
		return m, nil
	}}

	res, err := SearchOrder(context.Background(), f, s, DefaultGrid(), 4, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModelOrder{P: 2, D: 0, Q: 1}, res.Order)
	assert.Same(t, chosen, res.Model)
	assert.False(t, res.Fallback)
	assert.Equal(t, 18, res.Fitted)
	assert.EqualValues(t, 18, f.calls)
}

func TestSearchOrderTieBreakIsDeterministic(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{
		fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
			m := flatModel(series, o)
			m.aic = 5
			return m, nil
		},
		// later orders finish first
		delay: func(o models.ModelOrder) time.Duration {
			return time.Duration(20-(o.P*6+o.D*3+o.Q)) * time.Millisecond
		},
	}

	for run := 0; run < 3; run++ {
		res, err := SearchOrder(context.Background(), f, s, DefaultGrid(), 18, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ModelOrder{}, res.Order)
	}
}

func TestSearchOrderOnlyFallbackOrderConverges(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
		if o != FallbackOrder {
			return nil, errNoConverge
		}
		m := flatModel(series, o)
		m.aic = 1e9
		return m, nil
	}}

	res, err := SearchOrder(context.Background(), f, s, DefaultGrid(), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, FallbackOrder, res.Order)
	assert.Equal(t, 1, res.Fitted)
}

func TestSearchOrderSkipsNonFiniteAIC(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
		m := flatModel(series, o)
		m.aic = math.NaN()
		if o == (models.ModelOrder{P: 1, D: 0, Q: 0}) {
			m.aic = 42
		}
		return m, nil
	}}

	res, err := SearchOrder(context.Background(), f, s, DefaultGrid(), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModelOrder{P: 1, D: 0, Q: 0}, res.Order)
}

func TestSearchOrderSkipsNilModel(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
		if o == (models.ModelOrder{P: 0, D: 1, Q: 1}) {
			m := flatModel(series, o)
			m.aic = 7
			return m, nil
		}
		return nil, nil
	}}

	res, err := SearchOrder(context.Background(), f, s, DefaultGrid(), 4, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModelOrder{P: 0, D: 1, Q: 1}, res.Order)
	assert.Equal(t, 1, res.Fitted)

	none := &fitFunc{fn: func([]float64, models.ModelOrder) (service.FittedModel, error) { return nil, nil }}
	_, err = SearchOrder(context.Background(), none, s, DefaultGrid(), 4, nil)
	assert.ErrorIs(t, err, ErrModelSelection)
}

func TestSearchOrderFallsBackOutsideGrid(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
		if o != FallbackOrder {
			return nil, errNoConverge
		}
		return flatModel(series, o), nil
	}}

	res, err := SearchOrder(context.Background(), f, s, Grid{PMax: 0, DMax: 0, QMax: 1}, 1, nil)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackOrder, res.Order)
	assert.EqualValues(t, 3, f.calls)
}

func TestSearchOrderFailsWhenFallbackFails(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{fn: func([]float64, models.ModelOrder) (service.FittedModel, error) {
		return nil, errNoConverge
	}}

	_, err := SearchOrder(context.Background(), f, s, DefaultGrid(), 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelSelection))
	assert.True(t, errors.Is(err, errNoConverge))
}

func TestSearchOrderHonorsCancellation(t *testing.T) {
	s := seriesOf(constant(50, 100)...)
	f := &fitFunc{
		fn: func(series []float64, o models.ModelOrder) (service.FittedModel, error) {
			return flatModel(series, o), nil
		},
		delay: func(models.ModelOrder) time.Duration { return time.Second },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := SearchOrder(ctx, f, s, DefaultGrid(), 2, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelSelection))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
