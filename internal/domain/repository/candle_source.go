package repository

import (
	"context"
	"errors"

	"SmcDesk/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("virtual order not found")
	ErrEntryNotFound = errors.New("setup history entry not found")
)

// CandleQuery selects the most recent Limit candles of one series.
type CandleQuery struct {
	Symbol    string
	Category  string
	Timeframe Timeframe
	Limit     int
}

// CandleSource provides ascending, de-duplicated candles for analysis.
type CandleSource interface {
	GetLatestCandles(ctx context.Context, q CandleQuery) ([]models.Candle, error)
}

// CandleStore persists closed candles for later analysis.
type CandleStore interface {
	CandleSource
	InsertCandles(ctx context.Context, symbol string, tf Timeframe, candles []models.Candle) error
}
