package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/internal/middleware"
	applogger "SmcDesk/pkg/logger"
)

type CandleFeedConfig struct {
	Symbols   []string
	Timeframe domrepo.Timeframe
	// TickRPS caps intra-bar updates per series; 0 passes every tick.
	TickRPS int
}

// CandleFeed follows live klines. Each confirmed bar is stored, then either
// published for the order consumer or applied to orders directly.
type CandleFeed struct {
	stream    domrepo.KlineStream
	gate      *middleware.KlineGate
	store     domrepo.CandleStore
	publisher domrepo.ClosedCandlePublisher
	orders    *VirtualOrdersUseCase
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	cfg       CandleFeedConfig

	mu     sync.Mutex
	lastT  map[string]int64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCandleFeed builds a feed; store and publisher may be nil.
func NewCandleFeed(
	stream domrepo.KlineStream,
	store domrepo.CandleStore,
	publisher domrepo.ClosedCandlePublisher,
	orders *VirtualOrdersUseCase,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg CandleFeedConfig,
) *CandleFeed {
	return &CandleFeed{
		stream:    stream,
		gate:      middleware.NewKlineGate(metrics, middleware.WithMaxRPS(cfg.TickRPS)),
		store:     store,
		publisher: publisher,
		orders:    orders,
		metrics:   metrics,
		logger:    l.With(applogger.String("component", "candle_feed")),
		cfg:       cfg,
		lastT:     make(map[string]int64),
	}
}

// IsConnected returns true if the kline stream is connected.
func (f *CandleFeed) IsConnected() bool { return f.stream.IsConnected() }

func (f *CandleFeed) Start(ctx context.Context) error {
	if err := f.stream.Connect(ctx); err != nil {
		return fmt.Errorf("connect kline stream: %w", err)
	}
	if err := f.stream.Subscribe(ctx, f.cfg.Symbols, f.cfg.Timeframe); err != nil {
		return fmt.Errorf("subscribe klines: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(ctx)
	}()
	f.logger.Info("candle feed started",
		applogger.Strings("symbols", f.cfg.Symbols),
		applogger.String("tf", string(f.cfg.Timeframe)),
	)
	return nil
}

func (f *CandleFeed) run(ctx context.Context) {
	for {
		updates, errs := f.stream.Read(ctx)
		for u := range updates {
			if f.gate.Allow(u) {
				f.HandleUpdate(ctx, u)
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := <-errs; err != nil {
			f.metrics.RecordError("stream")
			f.logger.Warn("kline stream interrupted", applogger.Error(err))
		}
		if !f.reconnect(ctx) {
			return
		}
	}
}

// reconnect retries until it succeeds or ctx ends; the stream paces attempts.
func (f *CandleFeed) reconnect(ctx context.Context) bool {
	for ctx.Err() == nil {
		err := f.stream.Reconnect(ctx)
		if err == nil {
			f.logger.Info("kline stream reconnected")
			return true
		}
		f.metrics.RecordError("stream_reconnect")
		f.logger.Warn("kline stream reconnect failed", applogger.Error(err))
	}
	return false
}

// HandleUpdate records the latest price and, for a confirmed bar seen for
// the first time, stores and dispatches it.
func (f *CandleFeed) HandleUpdate(ctx context.Context, u domrepo.KlineUpdate) {
	f.metrics.RecordLastClose(u.Symbol, u.Candle.C)
	if !u.Confirmed || !f.firstClose(u) {
		return
	}

	if f.store != nil {
		start := time.Now()
		if err := f.store.InsertCandles(ctx, u.Symbol, u.Timeframe, []models.Candle{u.Candle}); err != nil {
			f.metrics.RecordError("candle_store")
			f.logger.Warn("store closed candle failed", applogger.Error(err), applogger.String("symbol", u.Symbol))
		}
		f.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	}

	ev := models.ClosedCandleEvent{Symbol: u.Symbol, Timeframe: string(u.Timeframe), Candle: u.Candle}
	if f.publisher != nil {
		err := f.publisher.PublishClosedCandle(ctx, ev)
		if err == nil {
			return
		}
		f.metrics.RecordError("closed_candle_publish")
		f.logger.Warn("publish closed candle failed, processing inline", applogger.Error(err))
	}

	if _, err := f.orders.ProcessCandle(ctx, ev.Symbol, ev.Timeframe, ev.Candle); err != nil && !errors.Is(err, ErrStaleCandle) {
		f.metrics.RecordError("process_candle")
		f.logger.Error("process closed candle failed", applogger.Error(err), applogger.String("symbol", u.Symbol))
	}
}

func (f *CandleFeed) firstClose(u domrepo.KlineUpdate) bool {
	key := u.Symbol + "|" + string(u.Timeframe)
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.Candle.T <= f.lastT[key] {
		return false
	}
	f.lastT[key] = u.Candle.T
	return true
}

// Shutdown stops the read loop and closes the stream.
func (f *CandleFeed) Shutdown(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}
	closeErr := f.stream.Close()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return closeErr
}
