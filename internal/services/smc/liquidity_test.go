package smc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
)

func TestDetectEquilibriumLevels(t *testing.T) {
	candles := reversal()
	levels := DetectEquilibriumLevels(DetectSwings(candles, 3))

	require.Len(t, levels, 2)
	assert.Equal(t, models.EquilibriumLevel{
		ID: "eqh-1700012600000", Type: models.EQH, Price: 114.3, Time: t0 + 14*step, Strength: 70,
	}, levels[0])
	assert.Equal(t, models.EquilibriumLevel{
		ID: "eql-1700006300000", Type: models.EQL, Price: 101, Time: t0 + 7*step, Strength: 70,
	}, levels[1])
}

func TestDetectEquilibriumLevels_OnlyRecentFive(t *testing.T) {
	var swings []models.Swing
	prices := []float64{130, 110, 112, 111, 109, 113}
	for i, p := range prices {
		swings = append(swings, models.Swing{Index: i * 4, Time: int64(i + 1), Price: p, Type: models.SwingHigh})
	}
	levels := DetectEquilibriumLevels(swings)

	require.Len(t, levels, 1)
	assert.Equal(t, models.EQH, levels[0].Type)
	assert.Equal(t, 113.0, levels[0].Price, "the 130 high is older than the last five")
}

func TestDetectEquilibriumLevels_NeedsTwoSwings(t *testing.T) {
	assert.Empty(t, DetectEquilibriumLevels([]models.Swing{{Price: 1, Type: models.SwingHigh}}))
}

func TestDetectSweeps_BuySide(t *testing.T) {
	candles := reversal()
	levels := DetectEquilibriumLevels(DetectSwings(candles, 3))

	sweeps := DetectSweeps(candles, levels, DefaultSweepMarginPct)

	require.Len(t, sweeps, 1)
	assert.Equal(t, models.LiquiditySweep{
		ID: "sweep-buy-1700001800000", Type: models.SweepBuySide, Price: 100.2, Time: t0 + 2*step, Confirmed: true,
	}, sweeps[0])
	assert.Equal(t, models.Bullish, sweeps[0].Direction())
}

func TestDetectSweeps_SellSide(t *testing.T) {
	rows := flat(5)
	rows[2] = [4]float64{100, 103, 99, 100.5}
	rows[3] = [4]float64{100.5, 101, 99, 100}
	levels := []models.EquilibriumLevel{{ID: "eqh-1", Type: models.EQH, Price: 102}}

	sweeps := DetectSweeps(bars(rows...), levels, DefaultSweepMarginPct)

	require.Len(t, sweeps, 1)
	assert.Equal(t, models.SweepSellSide, sweeps[0].Type)
	assert.Equal(t, 103.0, sweeps[0].Price)
	assert.Equal(t, t0+3*step, sweeps[0].Time)
}

func TestDetectSweeps_MarginRespected(t *testing.T) {
	rows := flat(5)
	rows[2] = [4]float64{100, 102.2, 99, 100.5}
	levels := []models.EquilibriumLevel{{Type: models.EQH, Price: 102}}

	assert.Len(t, DetectSweeps(bars(rows...), levels, DefaultSweepMarginPct), 1)
	assert.Empty(t, DetectSweeps(bars(rows...), levels, 0.5))
}

func TestDetectSweeps_Degenerate(t *testing.T) {
	levels := []models.EquilibriumLevel{{Type: models.EQL, Price: 100}}
	assert.Empty(t, DetectSweeps(bars(flat(2)...), levels, DefaultSweepMarginPct))
	assert.Empty(t, DetectSweeps(bars(flat(5)...), nil, DefaultSweepMarginPct))
}
