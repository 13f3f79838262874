package smc

import (
	"fmt"
	"math"

	"SmcDesk/internal/domain/models"
)

const (
	// DefaultDisplacementPct is the minimum close-to-close move that confirms an order block.
	DefaultDisplacementPct = 0.5
	freshnessLookback      = 20
	touchesForFullFill     = 3
)

// OrderBlockOptions tunes order-block detection. BodyRange limits the zone to
// candle bodies instead of full wicks.
type OrderBlockOptions struct {
	DisplacementPct float64
	BodyRange       bool
}

// DetectOrderBlocks finds the last opposite-bodied candle before a displacement.
// Bullish zones span the block and the candle before it, bearish zones the
// block and the displacement candle.
func DetectOrderBlocks(candles []models.Candle, opts OrderBlockOptions) []models.POI {
	if len(candles) < 3 {
		return nil
	}
	span := fullRange
	if opts.BodyRange {
		span = bodyRange
	}

	var obs []models.POI
	for i := 1; i < len(candles)-1; i++ {
		prev, curr, next := candles[i-1], candles[i], candles[i+1]

		if curr.Bearish() && next.Bullish() {
			if (next.C-curr.C)/curr.C*100 > opts.DisplacementPct {
				obs = append(obs, newPOI(models.POIOrderBlock, models.Bullish, curr.T, span(curr, prev)))
			}
		}
		if curr.Bullish() && next.Bearish() {
			if (curr.C-next.C)/curr.C*100 > opts.DisplacementPct {
				obs = append(obs, newPOI(models.POIOrderBlock, models.Bearish, curr.T, span(curr, next)))
			}
		}
	}
	return obs
}

// DetectFairValueGaps finds three-candle gaps of at least minGap price units.
func DetectFairValueGaps(candles []models.Candle, minGap float64) []models.POI {
	if len(candles) < 3 {
		return nil
	}

	var fvgs []models.POI
	for i := 1; i < len(candles)-1; i++ {
		prev, curr, next := candles[i-1], candles[i], candles[i+1]

		if prev.H < next.L && next.L-prev.H >= minGap {
			fvgs = append(fvgs, newPOI(models.POIFairValueGap, models.Bullish, curr.T, models.PriceRange{Low: prev.H, High: next.L}))
		}
		if prev.L > next.H && prev.L-next.H >= minGap {
			fvgs = append(fvgs, newPOI(models.POIFairValueGap, models.Bearish, curr.T, models.PriceRange{Low: next.H, High: prev.L}))
		}
	}
	return fvgs
}

// RefreshFreshness recomputes freshness of every POI against the last 20
// candles and returns new values; the input slice is left untouched.
func RefreshFreshness(pois []models.POI, candles []models.Candle) []models.POI {
	window := candles
	if len(window) > freshnessLookback {
		window = window[len(window)-freshnessLookback:]
	}

	out := make([]models.POI, len(pois))
	for k, p := range pois {
		touches, filled := 0, false
		for _, c := range window {
			if c.L <= p.Range.High && c.H >= p.Range.Low {
				touches++
				if c.L < p.Range.Low && c.H > p.Range.High {
					filled = true
				}
			}
		}
		ratio := math.Min(float64(touches)/touchesForFullFill, 1)
		if filled {
			ratio = 1
		}
		p.Freshness = models.Freshness{IsFresh: touches == 0, Touches: touches, FillRatio: ratio}
		out[k] = p
	}
	return out
}

func newPOI(kind models.POIKind, dir models.Direction, t int64, r models.PriceRange) models.POI {
	prefix := "ob"
	if kind == models.POIFairValueGap {
		prefix = "fvg"
	}
	return models.POI{
		ID:        fmt.Sprintf("%s-%s-%d", prefix, dir, t),
		Kind:      kind,
		Direction: dir,
		Range:     r,
		Time:      t,
		CreatedBy: "displacement",
		Freshness: models.Freshness{IsFresh: true},
	}
}

func fullRange(a, b models.Candle) models.PriceRange {
	return models.PriceRange{Low: math.Min(a.L, b.L), High: math.Max(a.H, b.H)}
}

func bodyRange(a, b models.Candle) models.PriceRange {
	return models.PriceRange{
		Low:  math.Min(math.Min(a.O, a.C), math.Min(b.O, b.C)),
		High: math.Max(math.Max(a.O, a.C), math.Max(b.O, b.C)),
	}
}

// ATR is the mean true range over the last period candles, 0 when there is
// not enough history.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		c, prevClose := candles[i], candles[i-1].C
		tr := math.Max(c.H-c.L, math.Max(math.Abs(c.H-prevClose), math.Abs(c.L-prevClose)))
		sum += tr
	}
	return sum / float64(period)
}
