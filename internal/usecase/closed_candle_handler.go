package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	pkgkafka "SmcDesk/pkg/kafka"
	applogger "SmcDesk/pkg/logger"
)

// ClosedCandleHandler consumes closed-candle events and applies them to
// the virtual order log.
type ClosedCandleHandler struct {
	topic   string
	orders  *VirtualOrdersUseCase
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewClosedCandleHandler(topic string, orders *VirtualOrdersUseCase, metrics domrepo.Metrics, l *applogger.Logger) *ClosedCandleHandler {
	return &ClosedCandleHandler{
		topic:   topic,
		orders:  orders,
		metrics: metrics,
		logger:  l.With(applogger.String("component", "closed_candle_handler")),
	}
}

func (h *ClosedCandleHandler) Topic() string { return h.topic }

// Handle decodes {symbol, timeframe, candle}. Redelivered candles are
// acknowledged without effect.
func (h *ClosedCandleHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.ClosedCandleEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode closed candle: %w", err)
	}
	if ev.Symbol == "" || ev.Timeframe == "" || ev.Candle.T <= 0 {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("closed candle event missing symbol, timeframe or time")
	}

	// Lag from bar close to handling.
	closeAt := ev.Candle.Time().Add(domrepo.Timeframe(ev.Timeframe).Duration())
	h.metrics.RecordLatency("closed_candle_lag", time.Since(closeAt).Seconds())

	_, err := h.orders.ProcessCandle(ctx, ev.Symbol, ev.Timeframe, ev.Candle)
	if errors.Is(err, ErrStaleCandle) {
		h.logger.Debug("stale closed candle skipped",
			applogger.String("symbol", ev.Symbol),
			applogger.String("tf", ev.Timeframe),
			applogger.Int64("candle_t", ev.Candle.T),
		)
		return nil
	}
	if err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*ClosedCandleHandler)(nil)
