package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
)

type countingMetrics struct {
	errors map[string]int
}

func (m *countingMetrics) RecordAnalysis(string, string, models.Decision) {}
func (m *countingMetrics) RecordTransition(models.OrderState, models.OrderState, models.CloseReason) {}
func (m *countingMetrics) RecordRejection(string) {}
func (m *countingMetrics) RecordStoreFallback(string) {}
func (m *countingMetrics) RecordError(kind string) { m.errors[kind]++ }
func (m *countingMetrics) RecordLastClose(string, float64) {}
func (m *countingMetrics) RecordLatency(string, float64) {}

func tick(symbol string, confirmed bool) domrepo.KlineUpdate {
	return domrepo.KlineUpdate{
		Symbol:    symbol,
		Timeframe: domrepo.TFM15,
		Candle:    models.Candle{T: 900_000, O: 100, H: 101, L: 99, C: 100.5, V: 1},
		Confirmed: confirmed,
	}
}

func TestKlineGate_ThrottlesIntraBarTicks(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewKlineGate(nil, WithMaxRPS(2), WithClock(func() time.Time { return now }))

	assert.True(t, g.Allow(tick("BTCUSDT", false)))
	now = now.Add(100 * time.Millisecond)
	assert.False(t, g.Allow(tick("BTCUSDT", false)))
	assert.True(t, g.Allow(tick("ETHUSDT", false)), "series are throttled independently")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, g.Allow(tick("BTCUSDT", false)))
}

func TestKlineGate_ConfirmedBarsAlwaysPass(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewKlineGate(nil, WithMaxRPS(1), WithClock(func() time.Time { return now }))

	assert.True(t, g.Allow(tick("BTCUSDT", false)))
	assert.True(t, g.Allow(tick("BTCUSDT", true)))
	assert.True(t, g.Allow(tick("BTCUSDT", true)))
}

func TestKlineGate_RejectsMalformedUpdates(t *testing.T) {
	m := &countingMetrics{errors: map[string]int{}}
	g := NewKlineGate(m, WithMaxRPS(0))

	bad := tick("BTCUSDT", true)
	bad.Candle.H, bad.Candle.L = 98, 99
	assert.False(t, g.Allow(bad))

	noSymbol := tick("", true)
	assert.False(t, g.Allow(noSymbol))

	noTime := tick("BTCUSDT", true)
	noTime.Candle.T = 0
	assert.False(t, g.Allow(noTime))

	assert.Equal(t, 3, m.errors["feed_invalid_kline"])
	assert.True(t, g.Allow(tick("BTCUSDT", false)))
	assert.True(t, g.Allow(tick("BTCUSDT", false)), "zero disables the throttle")
}
