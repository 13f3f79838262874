//go:build wireinject
// +build wireinject

package di

import (
	"SmcDesk/pkg/config"
	"SmcDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCache,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvideCandleSource,
		ProvideOrderStore,
		ProvideSetupHistoryStore,
		ProvideOrderEventPublisher,
		ProvideClosedCandlePublisher,

		// Domain services
		ProvideParamsCatalog,
		ProvideAnalyzer,

		// Use cases
		ProvideAnalyzeUseCase,
		ProvideSetupParamsUseCase,
		ProvideVirtualOrdersUseCase,
		ProvideSetupHistoryUseCase,
		ProvideClosedCandleHandler,
		ProvideCandleFeed,

		// HTTP
		ProvideAnalyzeLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
