package di

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/cache"
	"PriceCast/internal/service/history"
	"PriceCast/internal/service/yahoo"
	"PriceCast/internal/services/analytics"
	"PriceCast/internal/services/arima"
	"PriceCast/pkg/config"
	applogger "PriceCast/pkg/logger"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\n"))
	require.NoError(t, err)
	return cfg
}

func TestProvidersWithoutInfrastructure(t *testing.T) {
	cfg := defaultConfig(t)
	l := applogger.Nop()

	producer, err := ProvideKafkaProducer(cfg, l)
	require.NoError(t, err)
	assert.Nil(t, producer)

	consumer, err := ProvideKafkaConsumer(cfg, l)
	require.NoError(t, err)
	assert.Nil(t, consumer)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)
	assert.Nil(t, ProvideDailyBarStore(ch, cfg, l))

	assert.Nil(t, ProvideRequestQueue(producer, cfg))
	assert.IsType(t, internalrepo.NopForecastPublisher{}, ProvideForecastPublisher(producer, cfg))

	c, err := ProvideHistoryCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.TTLCache{}, c)
	assert.IsType(t, &history.CachedProvider{}, ProvideHistoryProvider(cfg, nil, c, l))
}

func TestProvideFitter(t *testing.T) {
	cfg := defaultConfig(t)
	assert.IsType(t, &arima.Fitter{}, ProvideFitter(cfg, nil))

	cfg.Fitter.Type = "remote"
	cfg.Analytics.PythonServiceURL = "http://127.0.0.1:9"
	assert.IsType(t, &analytics.HTTPModelFitter{}, ProvideFitter(cfg, nil))
}

func TestProvideRateLimiter(t *testing.T) {
	cfg := defaultConfig(t)
	assert.NotNil(t, ProvideRateLimiter(cfg))

	cfg.Server.RateLimit.Enabled = false
	assert.Nil(t, ProvideRateLimiter(cfg))
}

func TestProvideHistoryProviderSkipsCacheWithoutTTL(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.History.CacheTTL = 0
	p := ProvideHistoryProvider(cfg, nil, cache.NewTTLCache(), nil)
	_, cached := p.(*history.CachedProvider)
	assert.False(t, cached)
}

func TestProvideQuoteProvider(t *testing.T) {
	cfg := defaultConfig(t)
	assert.IsType(t, &yahoo.Client{}, ProvideQuoteProvider(cfg, nil))

	cfg.History.Source = "clickhouse"
	assert.Nil(t, ProvideQuoteProvider(cfg, nil))
}

func TestReadinessWithoutClickHouse(t *testing.T) {
	e := echo.New()
	readiness(nil).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}
