package smc

import (
	"SmcDesk/internal/domain/models"
	domsvc "SmcDesk/internal/domain/service"
)

const (
	t0   = int64(1_700_000_000_000)
	step = int64(900_000)
)

// bars builds candles from {o, h, l, c} rows spaced one M15 period apart.
func bars(rows ...[4]float64) []models.Candle {
	out := make([]models.Candle, len(rows))
	for i, r := range rows {
		out[i] = models.Candle{T: t0 + int64(i)*step, O: r[0], H: r[1], L: r[2], C: r[3], V: 1}
	}
	return out
}

func flat(n int) [][4]float64 {
	rows := make([][4]float64, n)
	for i := range rows {
		rows[i] = [4]float64{100, 101, 99, 100.5}
	}
	return rows
}

// reversal rises for 15 bars with a deep wick at bar 7, then drops for five
// bars through that wick.
func reversal() []models.Candle {
	var rows [][4]float64
	for i := 0; i < 15; i++ {
		c := 100 + float64(i)
		o := c - 0.5
		l := o - 0.3
		if i == 7 {
			l = 101
		}
		rows = append(rows, [4]float64{o, c + 0.3, l, c})
	}
	rows = append(rows,
		[4]float64{114, 114.1, 111.8, 112},
		[4]float64{112, 112.2, 108.8, 109},
		[4]float64{109, 109.2, 105.8, 106},
		[4]float64{106, 106.2, 102.8, 103},
		[4]float64{103, 103.2, 99.5, 100},
	)
	return bars(rows...)
}

func settings(symbol, tf string, params map[string]any) domsvc.AnalysisSettings {
	return domsvc.AnalysisSettings{Symbol: symbol, Category: "linear", Timeframe: tf, TZ: "UTC", Params: params}
}
