package smc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"SmcDesk/internal/domain/models"
)

const (
	SetupSweepCHoCHPOI = "Sweep -> CHoCH -> POI"

	stopBuffer   = 0.005
	targetOffset = 0.02
	setupRRMin   = 2.0
	setupScore   = 70
)

// buildSetups emits the sweep -> CHoCH -> POI plan when the latest structure
// has a CHoCH, at least one sweep exists and a fresh POI agrees with the
// CHoCH direction. The POI closest to the latest close wins.
func (e *Engine) buildSetups(
	candles []models.Candle,
	ms models.MarketStructure,
	sweeps []models.LiquiditySweep,
	obs, fvgs []models.POI,
	now time.Time,
) []models.Setup {
	setups := make([]models.Setup, 0, 1)
	if len(sweeps) == 0 || ms.LastCHoCH == nil {
		return setups
	}

	latest := candles[len(candles)-1]
	choch := ms.LastCHoCH
	recentSweep := sweeps[len(sweeps)-1]

	var candidates []models.POI
	for _, p := range append(append([]models.POI{}, obs...), fvgs...) {
		if p.Freshness.IsFresh && p.Direction == choch.Direction {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return setups
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return math.Abs(candidates[a].Range.Low-latest.C) < math.Abs(candidates[b].Range.Low-latest.C)
	})
	poi := candidates[0]

	side := models.SideSell
	stop := poi.Range.High * (1 + stopBuffer)
	target := poi.Range.Low * (1 - targetOffset)
	invalidation := "ABOVE_OB"
	if choch.Direction == models.Bullish {
		side = models.SideBuy
		stop = poi.Range.Low * (1 - stopBuffer)
		target = poi.Range.High * (1 + targetOffset)
		invalidation = "BELOW_OB"
	}

	return append(setups, models.Setup{
		ID:        fmt.Sprintf("setup-%d", now.UnixMilli()),
		Name:      SetupSweepCHoCHPOI,
		Direction: side,
		Status:    models.SetupWait,
		Timeframe: e.timeframe,
		Entry: models.SetupEntry{
			Mode: "limit",
			Zone: poi.Range,
			Trigger: models.EntryTrigger{
				Type:  "CHOCH_CONFIRM",
				Rules: []string{"CHoCH confirmed", "POI fresh"},
			},
			ValidFrom: e.timeRef(latest.T),
		},
		Risk: models.SetupRisk{
			StopLoss: stop,
			Invalidation: models.Invalidation{
				Type:   invalidation,
				Anchor: models.Anchor{Time: e.timeRef(poi.Time), Price: stop},
			},
			RRMin: setupRRMin,
		},
		Targets:    []models.Target{{Type: "TP", Price: target, Label: "TP1"}},
		Confidence: setupScore,
		Reasons:    []string{"Liquidity sweep confirmed", "CHoCH structure change", "Fresh POI available"},
		Confluence: models.Confluence{
			POIIDs:    []string{poi.ID},
			SignalIDs: []string{fmt.Sprintf("signal-choch-%d", choch.Time), "signal-sweep-" + recentSweep.ID},
		},
	})
}
