package smc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
)

func TestDetectOrderBlocks_Bullish(t *testing.T) {
	candles := bars(
		[4]float64{100, 101, 99, 100},
		[4]float64{100.5, 101.5, 99.5, 100},
		[4]float64{100, 102, 99.8, 101.5},
	)

	obs := DetectOrderBlocks(candles, OrderBlockOptions{DisplacementPct: DefaultDisplacementPct})

	require.Len(t, obs, 1)
	ob := obs[0]
	assert.Equal(t, "ob-bullish-1700000900000", ob.ID)
	assert.Equal(t, models.POIOrderBlock, ob.Kind)
	assert.Equal(t, models.Bullish, ob.Direction)
	assert.Equal(t, models.PriceRange{Low: 99, High: 101.5}, ob.Range)
	assert.Equal(t, "displacement", ob.CreatedBy)
	assert.True(t, ob.Freshness.IsFresh)

	assert.Empty(t, DetectOrderBlocks(candles, OrderBlockOptions{DisplacementPct: 2}))

	body := DetectOrderBlocks(candles, OrderBlockOptions{DisplacementPct: DefaultDisplacementPct, BodyRange: true})
	require.Len(t, body, 1)
	assert.Equal(t, models.PriceRange{Low: 100, High: 100.5}, body[0].Range)
}

func TestDetectOrderBlocks_BearishUsesNextCandle(t *testing.T) {
	candles := bars(
		[4]float64{100, 101, 99, 100},
		[4]float64{100, 102, 99.5, 101.8},
		[4]float64{101.8, 102.2, 99, 100},
	)

	obs := DetectOrderBlocks(candles, OrderBlockOptions{DisplacementPct: DefaultDisplacementPct})

	require.Len(t, obs, 1)
	assert.Equal(t, "ob-bearish-1700000900000", obs[0].ID)
	assert.Equal(t, models.PriceRange{Low: 99, High: 102.2}, obs[0].Range)
}

func TestDetectFairValueGaps(t *testing.T) {
	up := bars(
		[4]float64{99, 100, 98, 99.5},
		[4]float64{99.5, 103, 99.5, 102.5},
		[4]float64{102.5, 104, 101, 103.5},
	)
	fvgs := DetectFairValueGaps(up, 0)
	require.Len(t, fvgs, 1)
	assert.Equal(t, "fvg-bullish-1700000900000", fvgs[0].ID)
	assert.Equal(t, models.PriceRange{Low: 100, High: 101}, fvgs[0].Range)
	assert.Empty(t, DetectFairValueGaps(up, 2))

	down := bars(
		[4]float64{101, 102, 100, 100.5},
		[4]float64{100.5, 100.5, 97, 97.5},
		[4]float64{97.5, 98, 96, 96.5},
	)
	fvgs = DetectFairValueGaps(down, 0)
	require.Len(t, fvgs, 1)
	assert.Equal(t, models.Bearish, fvgs[0].Direction)
	assert.Equal(t, models.PriceRange{Low: 98, High: 100}, fvgs[0].Range)
}

func TestRefreshFreshness(t *testing.T) {
	poi := models.POI{ID: "fvg-bullish-1", Range: models.PriceRange{Low: 100, High: 101}, Freshness: models.Freshness{IsFresh: true}}

	untouched := bars([4]float64{102, 103, 102, 102.5})
	touched := bars([4]float64{102, 103, 100.5, 102.5}, [4]float64{102, 103, 102, 102.5})
	engulfed := bars([4]float64{102, 103, 99, 102.5})

	got := RefreshFreshness([]models.POI{poi}, untouched)
	assert.Equal(t, models.Freshness{IsFresh: true}, got[0].Freshness)

	got = RefreshFreshness([]models.POI{poi}, touched)
	assert.Equal(t, models.Freshness{IsFresh: false, Touches: 1, FillRatio: 1.0 / 3}, got[0].Freshness)

	got = RefreshFreshness([]models.POI{poi}, engulfed)
	assert.Equal(t, models.Freshness{IsFresh: false, Touches: 1, FillRatio: 1}, got[0].Freshness)
}

func TestRefreshFreshness_IdempotentAndPure(t *testing.T) {
	candles := reversal()
	pois := DetectFairValueGaps(candles, 0)
	original := append([]models.POI(nil), pois...)

	first := RefreshFreshness(pois, candles)
	second := RefreshFreshness(first, candles)

	assert.Equal(t, first, second)
	assert.Equal(t, original, pois, "input must not be mutated")
}

func TestRefreshFreshness_OnlyLastTwentyCandles(t *testing.T) {
	rows := [][4]float64{{100, 101, 99, 100.5}}
	for i := 0; i < 20; i++ {
		rows = append(rows, [4]float64{110, 111, 109, 110.5})
	}
	poi := models.POI{Range: models.PriceRange{Low: 99.5, High: 100}}

	got := RefreshFreshness([]models.POI{poi}, bars(rows...))
	assert.True(t, got[0].Freshness.IsFresh)
}

func TestATR(t *testing.T) {
	candles := bars(flat(15)...)
	assert.InDelta(t, 2.0, ATR(candles, 14), 1e-9)
	assert.Zero(t, ATR(candles[:14], 14))
}
