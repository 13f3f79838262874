package repository

import "time"

// Timeframe is a candle resolution label such as M15 or H4.
type Timeframe string

const (
	TFM1  Timeframe = "M1"
	TFM3  Timeframe = "M3"
	TFM5  Timeframe = "M5"
	TFM15 Timeframe = "M15"
	TFM30 Timeframe = "M30"
	TFH1  Timeframe = "H1"
	TFH2  Timeframe = "H2"
	TFH4  Timeframe = "H4"
	TFH6  Timeframe = "H6"
	TFH12 Timeframe = "H12"
	TFD1  Timeframe = "D1"
	TFW1  Timeframe = "W1"
)

var timeframes = map[Timeframe]struct {
	d        time.Duration
	interval string
}{
	TFM1:  {time.Minute, "1"},
	TFM3:  {3 * time.Minute, "3"},
	TFM5:  {5 * time.Minute, "5"},
	TFM15: {15 * time.Minute, "15"},
	TFM30: {30 * time.Minute, "30"},
	TFH1:  {time.Hour, "60"},
	TFH2:  {2 * time.Hour, "120"},
	TFH4:  {4 * time.Hour, "240"},
	TFH6:  {6 * time.Hour, "360"},
	TFH12: {12 * time.Hour, "720"},
	TFD1:  {24 * time.Hour, "D"},
	TFW1:  {7 * 24 * time.Hour, "W"},
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframes[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TFM15 }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration is the candle period; unknown labels use the M15 period.
func (tf Timeframe) Duration() time.Duration {
	if v, ok := timeframes[tf]; ok {
		return v.d
	}
	return 15 * time.Minute
}

// Millis is Duration in milliseconds.
func (tf Timeframe) Millis() int64 { return tf.Duration().Milliseconds() }

// BybitInterval maps the label to the exchange kline interval, "" if unknown.
func (tf Timeframe) BybitInterval() string { return timeframes[tf].interval }

// TimeframeFromBybit is the inverse of BybitInterval.
func TimeframeFromBybit(interval string) (Timeframe, bool) {
	for tf, v := range timeframes {
		if v.interval == interval {
			return tf, true
		}
	}
	return "", false
}
