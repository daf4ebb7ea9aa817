package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domrepo "PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/cache"
	"PriceCast/internal/service/history"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/service/yahoo"
	"PriceCast/internal/services/analytics"
	"PriceCast/internal/services/arima"
	"PriceCast/internal/services/forecast"
	"PriceCast/internal/usecase"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"
)

const serviceName = "pricecast"

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// With log collection enabled the producer also ships aggregated logs.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.Collect.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        serviceName,
			TimeInterval:   cfg.Logging.Collect.Interval,
			CountThreshold: cfg.Logging.Collect.Threshold,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the forecast-request consumer, or nil when
// Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the bar table,
// or returns nil when no component needs it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.UsesClickHouse() {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.DailyBarSchema(ch.Database, ch.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideDailyBarStore wraps the ClickHouse client, or returns nil without one.
func ProvideDailyBarStore(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHDailyBarStore {
	if client == nil {
		return nil
	}
	store := internalrepo.NewCHDailyBarStore(client, cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
	store.SetLogger(l)
	return store
}

// ProvideHistoryCache uses Redis when enabled and an in-process TTL cache otherwise.
func ProvideHistoryCache(cfg *config.Config) (cache.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("history cache: %w", err)
	}
	return rc, nil
}

// ProvideHistoryProvider selects the history source and puts the cache in front of it.
func ProvideHistoryProvider(
	cfg *config.Config,
	store *internalrepo.CHDailyBarStore,
	c cache.BytesCache,
	l *applogger.Logger,
) domrepo.HistoryProvider {
	var upstream domrepo.HistoryProvider
	switch cfg.History.Source {
	case "clickhouse":
		upstream = store
	default:
		upstream = newYahooClient(cfg, l)
	}
	if cfg.History.CacheTTL <= 0 {
		return upstream
	}
	return history.NewCachedProvider(upstream, c, cfg.History.CacheTTL, l)
}

// ProvideQuoteProvider returns the chart API quote source, or nil when
// history is served from ClickHouse.
func ProvideQuoteProvider(cfg *config.Config, l *applogger.Logger) domrepo.QuoteProvider {
	if cfg.History.Source == "clickhouse" {
		return nil
	}
	return newYahooClient(cfg, l)
}

func newYahooClient(cfg *config.Config, l *applogger.Logger) *yahoo.Client {
	return yahoo.New(xhttp.NewClient(
		xhttp.WithBaseURL(cfg.History.YahooBaseURL),
		xhttp.WithTimeout(cfg.History.Timeout),
		xhttp.WithRetries(cfg.History.Retries, 200*time.Millisecond),
		xhttp.WithUserAgent("Mozilla/5.0 (compatible; pricecast/1.0)"),
	), l)
}

// ProvideFitter returns the in-process CSS fitter or the remote analytics fitter.
func ProvideFitter(cfg *config.Config, l *applogger.Logger) domsvc.ModelFitter {
	if cfg.Fitter.Type == "remote" {
		return analytics.NewHTTPModelFitter(cfg, l)
	}
	return arima.NewFitter(
		arima.WithMaxIterations(cfg.Fitter.MaxIterations),
		arima.WithLogger(l),
	)
}

// ProvideForecastPublisher publishes results to Kafka when a producer exists.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.ForecastPublisher {
	if producer == nil {
		return internalrepo.NopForecastPublisher{}
	}
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideRequestQueue returns nil when Kafka is disabled; the enqueue route is
// then not registered.
func ProvideRequestQueue(producer *pkgkafka.Producer, cfg *config.Config) api.RequestEnqueuer {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaRequestQueue(producer, cfg.Kafka.RequestsTopic)
}

// ProvideForecastUseCase creates the forecasting use case from the forecast section.
func ProvideForecastUseCase(
	hist domrepo.HistoryProvider,
	fitter domsvc.ModelFitter,
	pub domrepo.ForecastPublisher,
	m domrepo.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	f := cfg.Forecast
	return usecase.NewForecastUseCase(hist, fitter, pub, m, usecase.ForecastSettings{
		Grid:            forecast.Grid{PMax: f.PMax, DMax: f.DMax, QMax: f.QMax},
		Workers:         f.Workers,
		SearchTimeout:   f.SearchTimeout,
		MinObservations: f.MinObservations,
		DefaultDays:     f.DefaultDays,
		MaxDays:         f.MaxDays,
		DefaultPeriod:   f.DefaultPeriod,
	}, l)
}

// ProvideHistoryUseCase creates the history use case; ingest needs the bar store.
func ProvideHistoryUseCase(
	hist domrepo.HistoryProvider,
	quotes domrepo.QuoteProvider,
	store *internalrepo.CHDailyBarStore,
	l *applogger.Logger,
) *usecase.HistoryUseCase {
	var w domrepo.DailyBarWriter
	if store != nil {
		w = store
	}
	return usecase.NewHistoryUseCase(hist, w, l).WithQuotes(quotes)
}

// ProvideKafkaForecastHandler consumes asynchronous forecast requests.
func ProvideKafkaForecastHandler(
	cfg *config.Config,
	uc *usecase.ForecastUseCase,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.KafkaForecastHandler {
	return usecase.NewKafkaForecastHandler(cfg.Kafka.RequestsTopic, uc, m, l)
}

// ProvideRateLimiter returns the per-client forecast limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) echo.MiddlewareFunc {
	rl := cfg.Server.RateLimit
	if !rl.Enabled || rl.PerMinute <= 0 {
		return nil
	}
	return ratelimit.New(float64(rl.PerMinute)/60, rl.Burst).Middleware()
}

// ProvideRoutes combines the API handlers and the readiness check.
func ProvideRoutes(
	l *applogger.Logger,
	fuc *usecase.ForecastUseCase,
	huc *usecase.HistoryUseCase,
	queue api.RequestEnqueuer,
	limiter echo.MiddlewareFunc,
	chClient *pkgch.Client,
) xhttp.Handler {
	return api.Routes{
		api.NewForecastEchoHandler(l, fuc, queue, limiter),
		api.NewHistoryEchoHandler(l, huc),
		readiness(chClient),
	}
}

// readiness reports 503 while the bar database is unreachable.
func readiness(chClient *pkgch.Client) xhttp.HandlerFunc {
	return func(e *echo.Echo) {
		e.GET("/ready", func(c echo.Context) error {
			if chClient != nil {
				if err := chClient.Health(c.Request().Context()); err != nil {
					return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"clickhouse": err.Error()})
				}
			}
			return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
		})
	}
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithServerLogger(l),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaForecastHandler,
	pub domrepo.ForecastPublisher,
	chClient *pkgch.Client,
	c cache.BytesCache,
) *server.App {
	app := server.New(cfg, l, srv)
	if consumer != nil {
		app.WithConsumer(consumer, kh)
	}
	// The Kafka publisher owns the producer shared with the request queue.
	app.AddCloser("forecast publisher", pub)
	if chClient != nil {
		app.AddCloser("clickhouse", chClient)
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		app.AddCloser("redis", rc)
	}
	return app
}
