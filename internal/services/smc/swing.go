package smc

import "SmcDesk/internal/domain/models"

// DefaultFractalLen is the number of neighbours compared on each side.
const DefaultFractalLen = 3

// DetectSwings finds fractal pivots: a swing high strictly exceeds the highs
// of the l candles on both sides, a swing low is strictly below their lows.
// When both hold the high wins. Fewer than 2l+1 candles yield no swings.
func DetectSwings(candles []models.Candle, l int) []models.Swing {
	if l <= 0 {
		l = DefaultFractalLen
	}
	n := len(candles)
	if n < 2*l+1 {
		return nil
	}

	var swings []models.Swing
	for i := l; i < n-l; i++ {
		c := candles[i]
		switch {
		case isPivot(candles, i, l, func(nb models.Candle) bool { return nb.H < c.H }):
			swings = append(swings, models.Swing{Index: i, Time: c.T, Price: c.H, Type: models.SwingHigh})
		case isPivot(candles, i, l, func(nb models.Candle) bool { return nb.L > c.L }):
			swings = append(swings, models.Swing{Index: i, Time: c.T, Price: c.L, Type: models.SwingLow})
		}
	}
	return swings
}

func isPivot(candles []models.Candle, i, l int, beats func(models.Candle) bool) bool {
	for j := 1; j <= l; j++ {
		if !beats(candles[i-j]) || !beats(candles[i+j]) {
			return false
		}
	}
	return true
}
