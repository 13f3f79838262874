package repository

import (
	"context"
	"time"

	"SmcDesk/internal/domain/models"
)

// KlineUpdate is one kline push from a live stream; Confirmed marks a closed bar.
type KlineUpdate struct {
	Symbol    string
	Timeframe Timeframe
	Candle    models.Candle
	Confirmed bool
}

type KlineStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string, tf Timeframe) error
	Read(ctx context.Context) (<-chan KlineUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Partition identifies one symbol+timeframe slice of the order book.
type Partition struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"tf"`
}

func (p Partition) String() string { return p.Symbol + "|" + p.Timeframe }

// OrderStore persists the full order list of a partition; Save replaces it.
type OrderStore interface {
	Load(ctx context.Context, p Partition) ([]models.VirtualOrder, error)
	Save(ctx context.Context, p Partition, orders []models.VirtualOrder) error
	Partitions(ctx context.Context) ([]Partition, error)
}

type SetupHistoryStore interface {
	List(ctx context.Context) ([]models.SetupHistoryEntry, error)
	Add(ctx context.Context, e models.SetupHistoryEntry) error
	UpdateStatus(ctx context.Context, id string, status models.HistoryStatus, at time.Time) (*models.SetupHistoryEntry, error)
	Close() error
}

// OrderEventPublisher fans out order transitions to downstream consumers.
type OrderEventPublisher interface {
	PublishTransitions(ctx context.Context, transitions []models.Transition) error
}

// ClosedCandlePublisher hands confirmed candles to the event bus.
type ClosedCandlePublisher interface {
	PublishClosedCandle(ctx context.Context, ev models.ClosedCandleEvent) error
}

type Metrics interface {
	RecordAnalysis(symbol, tf string, decision models.Decision)
	RecordTransition(from, to models.OrderState, reason models.CloseReason)
	RecordRejection(code string)
	RecordStoreFallback(op string)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
