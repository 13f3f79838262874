package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SmcDesk/internal/usecase"
	"SmcDesk/pkg/config"
	xhttp "SmcDesk/pkg/http"
	pkgkafka "SmcDesk/pkg/kafka"
	applogger "SmcDesk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	feed       *usecase.CandleFeed
	consumer   *pkgkafka.Consumer
	handler    pkgkafka.MessageHandler
	closers    []io.Closer
}

// New creates an App. feed, consumer and handler are optional; closers are
// released in reverse order on shutdown.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	feed *usecase.CandleFeed,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	closers ...io.Closer,
) *App {
	return &App{
		cfg:        cfg,
		logger:     l,
		httpServer: httpServer,
		feed:       feed,
		consumer:   consumer,
		handler:    handler,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	a.logger.Info("smcdesk starting",
		applogger.String("candle_source", a.cfg.Engine.CandleSource),
		applogger.String("orders_backend", a.cfg.Orders.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("clickhouse", a.cfg.ClickHouse.Enabled),
		applogger.Bool("feed", a.feed != nil),
	)

	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.handler.Topic()))
	}

	if a.feed != nil {
		if err := a.feed.Start(ctx); err != nil {
			// The API stays useful without the live feed.
			a.logger.Error("candle feed start failed", applogger.Error(err))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops inbound traffic first, then background work, then clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.feed != nil {
		if err := a.feed.Shutdown(ctx); err != nil {
			a.logger.Warn("candle feed stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// The error digest publishes through the producer, so flush it first.
	a.logger.Close()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.httpServer.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}
