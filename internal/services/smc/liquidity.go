package smc

import (
	"fmt"

	"SmcDesk/internal/domain/models"
)

const (
	eqRecentSwings = 5
	eqStrength     = 70
	// DefaultSweepMarginPct is the piercing margin beyond EQH/EQL, in percent.
	DefaultSweepMarginPct = 0.1
)

// DetectEquilibriumLevels returns at most one EQH (highest of the last five
// swing highs) and one EQL (lowest of the last five swing lows).
func DetectEquilibriumLevels(swings []models.Swing) []models.EquilibriumLevel {
	if len(swings) < 2 {
		return nil
	}

	var levels []models.EquilibriumLevel
	if s, ok := extremeOfRecent(swings, models.SwingHigh, func(a, b float64) bool { return a > b }); ok {
		levels = append(levels, models.EquilibriumLevel{
			ID: fmt.Sprintf("eqh-%d", s.Time), Type: models.EQH, Price: s.Price, Time: s.Time, Strength: eqStrength,
		})
	}
	if s, ok := extremeOfRecent(swings, models.SwingLow, func(a, b float64) bool { return a < b }); ok {
		levels = append(levels, models.EquilibriumLevel{
			ID: fmt.Sprintf("eql-%d", s.Time), Type: models.EQL, Price: s.Price, Time: s.Time, Strength: eqStrength,
		})
	}
	return levels
}

// extremeOfRecent keeps the first swing on ties, scanning oldest to newest.
func extremeOfRecent(swings []models.Swing, t models.SwingType, better func(a, b float64) bool) (models.Swing, bool) {
	var recent []models.Swing
	for _, s := range swings {
		if s.Type == t {
			recent = append(recent, s)
		}
	}
	if len(recent) == 0 {
		return models.Swing{}, false
	}
	if len(recent) > eqRecentSwings {
		recent = recent[len(recent)-eqRecentSwings:]
	}
	best := recent[0]
	for _, s := range recent[1:] {
		if better(s.Price, best.Price) {
			best = s
		}
	}
	return best, true
}

// DetectSweeps scans candle pairs from index 2. A buy-side sweep is a prior
// low pierced below EQL by marginPct followed by a close back above EQL; the
// sell-side sweep mirrors it on EQH. Sweeps are not de-duplicated.
func DetectSweeps(candles []models.Candle, levels []models.EquilibriumLevel, marginPct float64) []models.LiquiditySweep {
	if len(candles) < 3 || len(levels) == 0 {
		return nil
	}
	m := marginPct / 100

	eqh, hasEQH := findLevel(levels, models.EQH)
	eql, hasEQL := findLevel(levels, models.EQL)

	var sweeps []models.LiquiditySweep
	for i := 2; i < len(candles); i++ {
		prev, curr := candles[i-1], candles[i]
		if hasEQL && prev.L < eql.Price*(1-m) && curr.C > eql.Price {
			sweeps = append(sweeps, models.LiquiditySweep{
				ID: fmt.Sprintf("sweep-buy-%d", curr.T), Type: models.SweepBuySide,
				Price: prev.L, Time: curr.T, Confirmed: true,
			})
		}
		if hasEQH && prev.H > eqh.Price*(1+m) && curr.C < eqh.Price {
			sweeps = append(sweeps, models.LiquiditySweep{
				ID: fmt.Sprintf("sweep-sell-%d", curr.T), Type: models.SweepSellSide,
				Price: prev.H, Time: curr.T, Confirmed: true,
			})
		}
	}
	return sweeps
}

func findLevel(levels []models.EquilibriumLevel, t models.EquilibriumType) (models.EquilibriumLevel, bool) {
	for _, l := range levels {
		if l.Type == t {
			return l, true
		}
	}
	return models.EquilibriumLevel{}, false
}
