package models

import "time"

// Candle is one OHLCV bar; T is the bar open time in epoch milliseconds.
type Candle struct {
	T int64   `json:"t" validate:"gt=0"`
	O float64 `json:"o" validate:"gt=0"`
	H float64 `json:"h" validate:"gt=0,gtefield=L"`
	L float64 `json:"l" validate:"gt=0"`
	C float64 `json:"c" validate:"gt=0"`
	V float64 `json:"v" validate:"gte=0"`
}

// Time returns the bar open time in UTC.
func (c Candle) Time() time.Time { return time.UnixMilli(c.T).UTC() }

func (c Candle) Bullish() bool { return c.C > c.O }

func (c Candle) Bearish() bool { return c.C < c.O }

// ClosedCandleEvent is the message carried on the closed-candle topic.
type ClosedCandleEvent struct {
	Symbol    string `json:"symbol" validate:"required"`
	Timeframe string `json:"timeframe" validate:"required"`
	Candle    Candle `json:"candle" validate:"required"`
}
