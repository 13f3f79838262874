package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"SmcDesk/internal/domain/repository"
	domsvc "SmcDesk/internal/domain/service"
	"SmcDesk/internal/handler/api"
	internalrepo "SmcDesk/internal/repository"
	"SmcDesk/internal/service/ratelimit"
	"SmcDesk/internal/services/orders"
	"SmcDesk/internal/services/params"
	"SmcDesk/internal/services/smc"
	"SmcDesk/internal/usecase"
	"SmcDesk/pkg/cache"
	pkgch "SmcDesk/pkg/clickhouse"
	"SmcDesk/pkg/config"
	xhttp "SmcDesk/pkg/http"
	pkgkafka "SmcDesk/pkg/kafka"
	applogger "SmcDesk/pkg/logger"
	"SmcDesk/pkg/metrics"
	"SmcDesk/pkg/server"
)

// snapshotTTL bounds how long the last-good order snapshot outlives a durable outage.
const snapshotTTL = 30 * 24 * time.Hour

// ProvideLogger creates the application logger. Error logs are digested onto
// Kafka when a producer is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.Topics.ErrorDigest != "" {
		l.AttachDigest(&applogger.DigestConfig{
			Topic:     cfg.Kafka.Topics.ErrorDigest,
			Publisher: producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient creates a ClickHouse client with the candle schema,
// or nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.CandleSchema(client.Database())); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache returns the analysis result cache: an in-memory L1 over Redis
// when Redis is on, memory only otherwise.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryDefaultTTL(cfg.Engine.CacheTTL))
	}
	return cache.NewLayeredCache(rc, cfg.Engine.CacheTTL)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled. Handler failures are counted per topic.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, _ error) {
			m.RecordError("consumer_handle")
		},
	})
	return consumer, nil
}

// ProvideCandleStore exposes ClickHouse candle persistence, or nil without ClickHouse.
func ProvideCandleStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.CandleStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Database, l)
}

// ProvideCandleSource selects where analysis reads candles from.
func ProvideCandleSource(cfg *config.Config, store repository.CandleStore) repository.CandleSource {
	if cfg.Engine.CandleSource == "clickhouse" && store != nil {
		return store
	}
	client := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Bybit.Timeout),
		xhttp.WithRetries(cfg.Bybit.Retries, 200*time.Millisecond),
		xhttp.WithUserAgent("smcdesk/1.0"),
	)
	burst := int(cfg.Bybit.RPS)
	if burst < 1 {
		burst = 1
	}
	return internalrepo.NewBybitCandleSource(cfg.Bybit.RestBase, client, ratelimit.New(cfg.Bybit.RPS, burst),
		internalrepo.WithBreaker(cfg.Bybit.BreakerFailures, cfg.Bybit.BreakerCooldown),
	)
}

// ProvideOrderStore builds the durable order store selected by config and
// fronts it with an in-memory snapshot tier.
func ProvideOrderStore(cfg *config.Config, rc *cache.RedisCache, m repository.Metrics, l *applogger.Logger) (repository.OrderStore, error) {
	var durable repository.OrderStore
	switch cfg.Orders.Backend {
	case "memory":
		return internalrepo.NewMemoryOrderStore(), nil
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("order store: redis backend without redis client")
		}
		durable = internalrepo.NewRedisOrderStore(rc.Client(), rc.Prefix())
	default:
		fs, err := internalrepo.NewFileOrderStore(cfg.Orders.DataDir)
		if err != nil {
			return nil, fmt.Errorf("order store: %w", err)
		}
		durable = fs
	}
	snapshot := cache.NewMemoryCache(cache.WithMemoryDefaultTTL(snapshotTTL))
	return internalrepo.NewTieredOrderStore(durable, snapshot, m, l), nil
}

// ProvideSetupHistoryStore opens the setup-history store selected by config.
func ProvideSetupHistoryStore(cfg *config.Config) (repository.SetupHistoryStore, error) {
	if cfg.SetupHistory.Backend == "memory" {
		return internalrepo.NewMemorySetupHistory(), nil
	}
	store, err := internalrepo.NewSQLiteSetupHistory(cfg.SetupHistory.Path)
	if err != nil {
		return nil, fmt.Errorf("setup history: %w", err)
	}
	return store, nil
}

// ProvideOrderEventPublisher publishes transitions to Kafka, or nil without Kafka.
func ProvideOrderEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.OrderEventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaOrderPublisher(producer, cfg.Kafka.Topics.OrderEvents)
}

// ProvideClosedCandlePublisher publishes closed candles to Kafka, or nil without Kafka.
func ProvideClosedCandlePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ClosedCandlePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaCandlePublisher(producer, cfg.Kafka.Topics.ClosedCandles)
}

// ProvideParamsCatalog loads the built-in parameter catalog.
func ProvideParamsCatalog() *params.Catalog {
	return params.Default()
}

// ProvideAnalyzer creates the SMC analyzer with output validation.
func ProvideAnalyzer() domsvc.Analyzer {
	return smc.NewAnalyzer(smc.NewOutputValidator())
}

// ProvideAnalyzeUseCase creates the analysis use case.
func ProvideAnalyzeUseCase(
	cfg *config.Config,
	source repository.CandleSource,
	analyzer domsvc.Analyzer,
	catalog *params.Catalog,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AnalyzeUseCase {
	return usecase.NewAnalyzeUseCase(source, analyzer, catalog, c, m, l, usecase.AnalyzeConfig{
		TZ:           cfg.Engine.TZ,
		CandleSource: cfg.Engine.CandleSource,
		CacheTTL:     cfg.Engine.CacheTTL,
	})
}

// ProvideSetupParamsUseCase creates the parameter schema use case.
func ProvideSetupParamsUseCase(catalog *params.Catalog) *usecase.SetupParamsUseCase {
	return usecase.NewSetupParamsUseCase(catalog)
}

// ProvideVirtualOrdersUseCase creates the order use case. Redis, when present,
// serializes writers of a partition across processes.
func ProvideVirtualOrdersUseCase(
	cfg *config.Config,
	store repository.OrderStore,
	rc *cache.RedisCache,
	publisher repository.OrderEventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.VirtualOrdersUseCase {
	var locker cache.Service
	if rc != nil {
		locker = rc
	}
	return usecase.NewVirtualOrdersUseCase(store, locker, publisher, m, l, usecase.VirtualOrdersConfig{
		Thresholds: orders.Thresholds{
			MinConfidence:      cfg.Orders.MinConfidence,
			MinRR:              cfg.Orders.MinRR,
			MinConfluenceCount: cfg.Orders.MinConfluenceCount,
			ValidUntilCandles:  cfg.Orders.ValidUntilCandles,
		},
		LockTTL: cfg.Orders.LockTTL,
	})
}

// ProvideSetupHistoryUseCase creates the setup-history use case.
func ProvideSetupHistoryUseCase(store repository.SetupHistoryStore, l *applogger.Logger) *usecase.SetupHistoryUseCase {
	return usecase.NewSetupHistoryUseCase(store, l)
}

// ProvideClosedCandleHandler consumes closed candles from Kafka into the order engine.
func ProvideClosedCandleHandler(cfg *config.Config, vo *usecase.VirtualOrdersUseCase, m repository.Metrics, l *applogger.Logger) *usecase.ClosedCandleHandler {
	return usecase.NewClosedCandleHandler(cfg.Kafka.Topics.ClosedCandles, vo, m, l)
}

// ProvideCandleFeed creates the live Bybit kline feed, or nil when disabled.
func ProvideCandleFeed(
	cfg *config.Config,
	store repository.CandleStore,
	publisher repository.ClosedCandlePublisher,
	vo *usecase.VirtualOrdersUseCase,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CandleFeed {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := internalrepo.NewBybitKlineStream(cfg.Bybit.WebSocketURL, cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, l)
	return usecase.NewCandleFeed(stream, store, publisher, vo, m, l, usecase.CandleFeedConfig{
		Symbols:   cfg.Feed.Symbols,
		Timeframe: repository.Timeframe(cfg.Feed.Timeframe),
		TickRPS:   cfg.Feed.TickRPS,
	})
}

// ProvideAnalyzeLimiter throttles POST /api/analyze, or returns nil when unlimited.
func ProvideAnalyzeLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Server.AnalyzeRPS <= 0 {
		return nil
	}
	return ratelimit.New(cfg.Server.AnalyzeRPS, cfg.Server.AnalyzeBurst)
}

// ProvideHandlers collects every HTTP route group.
func ProvideHandlers(
	l *applogger.Logger,
	analyze *usecase.AnalyzeUseCase,
	setup *usecase.SetupParamsUseCase,
	vo *usecase.VirtualOrdersUseCase,
	history *usecase.SetupHistoryUseCase,
	limiter *ratelimit.Limiter,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewSmcEchoHandler(l, analyze, setup, limiter),
		api.NewOrdersEchoHandler(l, vo),
		api.NewSetupHistoryEchoHandler(l, history),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetrics(""))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp creates the application server. Clients are closed in reverse
// of the order listed here.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	feed *usecase.CandleFeed,
	consumer *pkgkafka.Consumer,
	handler *usecase.ClosedCandleHandler,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
	history repository.SetupHistoryStore,
) *server.App {
	var closers []io.Closer
	if producer != nil {
		closers = append(closers, producer)
	}
	if ch != nil {
		closers = append(closers, ch)
	}
	// c owns the Redis client when Redis is enabled.
	closers = append(closers, c, history)

	var h pkgkafka.MessageHandler
	if consumer != nil {
		h = handler
	}
	return server.New(cfg, l, httpServer, feed, consumer, h, closers...)
}
