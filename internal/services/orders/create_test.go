package orders

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
)

func goodSetup() *models.Setup {
	return &models.Setup{
		ID:         "setup-1",
		Name:       "Sweep → CHoCH → POI",
		Direction:  models.SideBuy,
		Status:     models.SetupValid,
		Timeframe:  "M15",
		Entry:      models.SetupEntry{Mode: "limit", Zone: models.PriceRange{Low: 100, High: 102}},
		Risk:       models.SetupRisk{StopLoss: 98, RRMin: 2},
		Targets:    []models.Target{{Type: "liquidity", Price: 106, Label: "TP1"}},
		Confidence: 75,
		Reasons:    []string{"sweep", "choch"},
	}
}

func input(s *models.Setup) CreateInput {
	return CreateInput{Symbol: "BTCUSDT", Timeframe: "M15", Setup: s}
}

func rejectCode(t *testing.T, err error) string {
	t.Helper()
	var re *RejectError
	require.True(t, errors.As(err, &re), "expected RejectError, got %v", err)
	return re.Code
}

func TestCreate_BuildsPlannedOrder(t *testing.T) {
	o, err := Create(nil, input(goodSetup()), DefaultThresholds(), now)
	require.NoError(t, err)

	assert.Equal(t, models.OrderPlanned, o.State)
	assert.Equal(t, models.SideBuy, o.Side)
	assert.Equal(t, 100.0, o.EntryZoneLow)
	assert.Equal(t, 102.0, o.EntryZoneHigh)
	assert.Equal(t, 98.0, o.StopLoss)
	assert.Equal(t, []float64{106}, o.Targets)
	assert.Equal(t, 2.0, o.RRExpected)
	assert.Equal(t, DefaultEngineVersion, o.EngineVersion)
	assert.Equal(t, "setup-1", o.SetupRef)
	assert.Equal(t, "BTCUSDT|M15|BUY|101", o.DedupeKey)
	assert.Equal(t, now.UnixMilli()+12*900_000, o.ValidUntilCandleT)
	assert.True(t, strings.HasPrefix(o.ID, "vo_"))
	assert.Len(t, strings.Split(o.ID, "_")[2], 9)
	assert.NotNil(t, o.ParamsResolved)
	assert.Nil(t, o.OpenedAt)
	assert.Nil(t, o.PnL)
}

func TestCreate_Defaults(t *testing.T) {
	s := goodSetup()
	s.ID = ""
	s.Name = ""
	in := input(s)
	in.Timeframe = "H1"
	th := DefaultThresholds()
	th.ValidUntilCandles = 3

	o, err := Create(nil, in, th, now)
	require.NoError(t, err)
	assert.Equal(t, "Setup", o.SetupName)
	assert.True(t, strings.HasPrefix(o.SetupRef, "setup-"))
	assert.True(t, strings.HasPrefix(o.SnapshotID, "snap_"))
	assert.Equal(t, now.UnixMilli()+3*3_600_000, o.ValidUntilCandleT)
}

func TestCreate_Gates(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name   string
		mutate func(*models.Setup)
		code   string
	}{
		{"invalid status", func(s *models.Setup) { s.Status = models.SetupInvalid }, ErrCodeSetupStatus},
		{"low confidence", func(s *models.Setup) { s.Confidence = 69 }, ErrCodeConfidence},
		{"low rr", func(s *models.Setup) { s.Risk.RRMin = 1.5 }, ErrCodeRR},
		{"single reason", func(s *models.Setup) { s.Reasons = []string{"sweep"} }, ErrCodeConfluence},
		{"missing stop", func(s *models.Setup) { s.Risk.StopLoss = 0 }, ErrCodeSetupIncomplete},
		{"status checked first", func(s *models.Setup) { s.Status = "invalid"; s.Confidence = 10 }, ErrCodeSetupStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := goodSetup()
			tc.mutate(s)
			_, err := Create(nil, input(s), th, now)
			assert.Equal(t, tc.code, rejectCode(t, err))
		})
	}

	_, err := Create(nil, input(nil), th, now)
	assert.Equal(t, ErrCodeSetupIncomplete, rejectCode(t, err))
}

func TestCreate_WaitStatusAccepted(t *testing.T) {
	s := goodSetup()
	s.Status = models.SetupWait
	_, err := Create(nil, input(s), DefaultThresholds(), now)
	assert.NoError(t, err)
}

func TestCreate_Dedupe(t *testing.T) {
	first, err := Create(nil, input(goodSetup()), DefaultThresholds(), now)
	require.NoError(t, err)

	_, err = Create([]models.VirtualOrder{first}, input(goodSetup()), DefaultThresholds(), now)
	assert.Equal(t, ErrCodeDuplicateZone, rejectCode(t, err))

	// Same bucket after rounding to the tick.
	s := goodSetup()
	s.Entry.Zone = models.PriceRange{Low: 100.001, High: 102.001}
	_, err = Create([]models.VirtualOrder{first}, input(s), DefaultThresholds(), now)
	assert.Equal(t, ErrCodeDuplicateZone, rejectCode(t, err))

	// A closed order no longer blocks the zone.
	first.State = models.OrderClosed
	_, err = Create([]models.VirtualOrder{first}, input(goodSetup()), DefaultThresholds(), now)
	assert.NoError(t, err)

	// The opposite side is a different key.
	first.State = models.OrderOpen
	sell := goodSetup()
	sell.Direction = models.SideSell
	sell.Risk.StopLoss = 104
	_, err = Create([]models.VirtualOrder{first}, input(sell), DefaultThresholds(), now)
	assert.NoError(t, err)
}

func TestDedupeKey(t *testing.T) {
	assert.Equal(t, "ETHUSDT|H1|SELL|2500.13", DedupeKey("ETHUSDT", "H1", models.SideSell, 2500.1251))
	assert.Equal(t, "XRPUSDT|M5|BUY|0.52", DedupeKey("XRPUSDT", "M5", models.SideBuy, 0.5249))
}

func TestCloseManually(t *testing.T) {
	open := plannedBuy()
	open.State = models.OrderOpen
	fill := 101.0
	open.EntryFillPrice = &fill
	pnl := 2.02
	notes := "took profit early"

	o, tr, err := CloseManually(open, ManualClose{PnL: &pnl, Notes: &notes}, 0, now)
	require.NoError(t, err)
	assert.Equal(t, models.OrderClosed, o.State)
	assert.Equal(t, models.CloseManual, *o.CloseReason)
	assert.InDelta(t, 2.0, *o.PnLPct, 1e-9)
	assert.Equal(t, notes, *o.Notes)
	assert.Equal(t, models.OrderOpen, tr.From)

	planned, tr, err := CloseManually(plannedBuy(), ManualClose{}, 0, now)
	require.NoError(t, err)
	assert.Equal(t, models.OrderExpired, planned.State)
	assert.Equal(t, models.CloseManual, *planned.CloseReason)
	assert.Equal(t, models.OrderExpired, tr.To)

	_, _, err = CloseManually(o, ManualClose{}, 0, now)
	assert.ErrorIs(t, err, ErrTerminalOrder)
}
