package smc

import (
	"fmt"
	"strconv"
	"strings"

	"SmcDesk/internal/domain/models"
)

const levelBand = 0.001

func (e *Engine) timeRef(t int64) models.TimeRef {
	return models.TimeRef{TF: e.timeframe, T: t}
}

// newSignal builds one variant of the signals union; ref is the sweep id for
// LIQUIDITY_SWEEP and unused otherwise.
func (e *Engine) newSignal(kind models.SignalKind, dir models.Direction, t int64, price float64, ref string) models.Signal {
	s := models.Signal{
		Kind:      kind,
		Direction: dir,
		Time:      e.timeRef(t),
		Anchors:   []models.Anchor{{Time: e.timeRef(t), Price: price}},
	}
	switch kind {
	case models.SignalBOS:
		s.ID = fmt.Sprintf("signal-bos-%d", t)
		s.Confidence = 75
		s.Label = strings.ToUpper(string(dir)) + " BOS"
		s.Reason = "Break of structure at " + formatPrice(price)
	case models.SignalCHoCH:
		s.ID = fmt.Sprintf("signal-choch-%d", t)
		s.Confidence = 80
		s.Label = strings.ToUpper(string(dir)) + " CHoCH"
		s.Reason = "Change of character at " + formatPrice(price)
	case models.SignalLiquiditySweep:
		s.ID = "signal-sweep-" + ref
		s.Confidence = 70
		side := "Sell"
		if dir == models.Bullish {
			side = "Buy"
		}
		s.Label = side + " Side Sweep"
		s.Reason = "Liquidity sweep at " + formatPrice(price)
	default:
		panic(fmt.Sprintf("smc: unknown signal kind %q", kind))
	}
	return s
}

func (e *Engine) buildSignals(ms models.MarketStructure, sweeps []models.LiquiditySweep) []models.Signal {
	signals := make([]models.Signal, 0, len(sweeps)+2)
	if b := ms.LastBOS; b != nil {
		signals = append(signals, e.newSignal(models.SignalBOS, b.Direction, b.Time, b.Price, ""))
	}
	if c := ms.LastCHoCH; c != nil {
		signals = append(signals, e.newSignal(models.SignalCHoCH, c.Direction, c.Time, c.Price, ""))
	}
	for _, s := range sweeps {
		signals = append(signals, e.newSignal(models.SignalLiquiditySweep, s.Direction(), s.Time, s.Price, s.ID))
	}
	return signals
}

func (e *Engine) buildLevels(eq []models.EquilibriumLevel, sweeps []models.LiquiditySweep) []models.Level {
	levels := make([]models.Level, 0, len(eq)+len(sweeps))
	for _, l := range eq {
		levels = append(levels, models.Level{
			ID:        l.ID,
			Type:      models.LevelType(l.Type),
			TF:        e.timeframe,
			Range:     band(l.Price),
			Strength:  l.Strength,
			Status:    models.LevelFresh,
			CreatedAt: e.timeRef(l.Time),
		})
	}
	for _, s := range sweeps {
		typ := models.LevelSellSideLiquidity
		if s.Type == models.SweepBuySide {
			typ = models.LevelBuySideLiquidity
		}
		status := models.LevelFresh
		if s.Confirmed {
			status = models.LevelTested
		}
		levels = append(levels, models.Level{
			ID:        "level-" + s.ID,
			Type:      typ,
			TF:        e.timeframe,
			Range:     band(s.Price),
			Strength:  60,
			Status:    status,
			CreatedAt: e.timeRef(s.Time),
		})
	}
	return levels
}

func (e *Engine) buildPOIEntries(obs, fvgs []models.POI) []models.POIEntry {
	entries := make([]models.POIEntry, 0, len(obs)+len(fvgs))
	for _, p := range append(append([]models.POI{}, obs...), fvgs...) {
		status, score := models.POIActive, 80
		if p.Kind == models.POIFairValueGap {
			score = 70
		}
		if !p.Freshness.IsFresh {
			status = models.POIConsumed
			score -= 40
		}
		entries = append(entries, models.POIEntry{
			ID:        p.ID,
			Type:      p.Kind,
			Direction: p.Direction,
			TF:        e.timeframe,
			Range:     p.Range,
			Freshness: p.Freshness,
			Status:    status,
			Origin:    models.POIOrigin{CreatedBy: p.CreatedBy, Time: e.timeRef(p.Time)},
			Quality:   models.POIQuality{Score: score},
		})
	}
	return entries
}

func band(price float64) models.PriceRange {
	return models.PriceRange{Low: price * (1 - levelBand), High: price * (1 + levelBand)}
}

func formatPrice(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }
