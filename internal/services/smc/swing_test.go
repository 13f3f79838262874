package smc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
)

func TestDetectSwings_Reversal(t *testing.T) {
	swings := DetectSwings(reversal(), 3)

	require.Len(t, swings, 2)
	assert.Equal(t, models.Swing{Index: 7, Time: t0 + 7*step, Price: 101, Type: models.SwingLow}, swings[0])
	assert.Equal(t, models.Swing{Index: 14, Time: t0 + 14*step, Price: 114.3, Type: models.SwingHigh}, swings[1])
}

func TestDetectSwings_TooShort(t *testing.T) {
	rows := flat(6)
	rows[3] = [4]float64{100, 120, 99, 100}
	assert.Empty(t, DetectSwings(bars(rows...), 3))
}

func TestDetectSwings_StrictInequality(t *testing.T) {
	rows := flat(7)
	rows[3] = [4]float64{100, 105, 99, 100}
	rows[5] = [4]float64{100, 105, 99, 100}
	assert.Empty(t, DetectSwings(bars(rows...), 3), "equal neighbour high must not form a swing")

	rows[5] = [4]float64{100, 104.9, 99, 100}
	swings := DetectSwings(bars(rows...), 3)
	require.Len(t, swings, 1)
	assert.Equal(t, models.SwingHigh, swings[0].Type)
}

func TestDetectSwings_HighWinsOverLow(t *testing.T) {
	rows := flat(7)
	rows[3] = [4]float64{100, 110, 90, 100}
	swings := DetectSwings(bars(rows...), 3)
	require.Len(t, swings, 1)
	assert.Equal(t, models.SwingHigh, swings[0].Type)
	assert.Equal(t, 110.0, swings[0].Price)
}

func TestDetectSwings_PureAndSorted(t *testing.T) {
	candles := reversal()
	first := DetectSwings(candles, 2)
	second := DetectSwings(candles, 2)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].Index, first[i].Index)
	}
}
