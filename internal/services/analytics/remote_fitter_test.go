package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/config"
)

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Analytics.PythonServiceURL = url
	cfg.Analytics.Retries = 0
	cfg.Analytics.Timeout = time.Second
	cfg.Analytics.Breaker.FailureThreshold = 2
	cfg.Analytics.Breaker.Timeout = time.Minute
	return cfg
}

func TestHTTPModelFitterRoundTrip(t *testing.T) {
	series := []float64{10, 11, 12, 11.5}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/arima/fit":
			var req fitReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, models.ModelOrder{P: 1, D: 1, Q: 0}, req.Order)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"aic": 12.5, "bic": 13.1, "converged": true,
				"residuals":     []float64{0.5, -0.2},
				"fitted_values": []float64{10, 10.5, 12.2, 11.5},
				"n_ar":          1, "n_ma": 0,
				"params":        map[string]interface{}{"ar": []float64{0.3}},
			})
		case "/arima/forecast":
			var req forecastReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.JSONEq(t, `{"ar":[0.3]}`, string(req.Params))
			assert.Equal(t, 2, req.Steps)
			_ = json.NewEncoder(w).Encode(forecastResp{
				Mean: []float64{11.6, 11.7}, Lower: []float64{10, 9.5}, Upper: []float64{13.2, 13.9},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPModelFitter(testConfig(t, srv.URL), nil)
	m, err := f.Fit(context.Background(), series, models.ModelOrder{P: 1, D: 1, Q: 0})
	require.NoError(t, err)
	assert.Equal(t, 12.5, m.AIC())
	assert.Equal(t, 4, m.NumObs())
	assert.Equal(t, 1, m.NumAR())

	fc, err := m.Forecast(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{11.6, 11.7}, fc.Mean)
}

func TestHTTPModelFitterNonConvergence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"converged":false}`))
	}))
	defer srv.Close()

	_, err := NewHTTPModelFitter(testConfig(t, srv.URL), nil).Fit(context.Background(), []float64{1, 2, 3}, models.ModelOrder{P: 2, D: 0, Q: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not converge")
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPModelFitter(testConfig(t, srv.URL), nil)
	for i := 0; i < 2; i++ {
		_, err := f.Fit(context.Background(), []float64{1, 2, 3}, models.ModelOrder{P: 1, D: 1, Q: 1})
		require.Error(t, err)
	}
	_, err := f.Fit(context.Background(), []float64{1, 2, 3}, models.ModelOrder{P: 1, D: 1, Q: 1})
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad order", http.StatusBadRequest)
	}))
	defer srv.Close()

	f := NewHTTPModelFitter(testConfig(t, srv.URL), nil)
	for i := 0; i < 4; i++ {
		_, err := f.Fit(context.Background(), []float64{1, 2, 3}, models.ModelOrder{P: 9, D: 1, Q: 1})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrServiceUnavailable))
	}
}
