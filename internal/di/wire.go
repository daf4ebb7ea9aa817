//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"PriceCast/pkg/config"
	"PriceCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideHistoryCache,

		// Repositories and services
		ProvideDailyBarStore,
		ProvideHistoryProvider,
		ProvideQuoteProvider,
		ProvideFitter,
		ProvideForecastPublisher,
		ProvideRequestQueue,

		// Use cases
		ProvideForecastUseCase,
		ProvideHistoryUseCase,
		ProvideKafkaForecastHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideRoutes,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
