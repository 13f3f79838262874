package smc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type stubValidator struct{ issues []string }

func (s stubValidator) Validate(*models.SmcOutput) []string { return s.issues }

func TestEngineProcess_InsufficientCandles(t *testing.T) {
	_, err := NewEngine().Process(context.Background(), bars(flat(9)...))
	require.ErrorIs(t, err, ErrInsufficientCandles)
}

func TestEngineProcess_Reversal(t *testing.T) {
	out, err := NewEngine(WithClock(clock)).Process(context.Background(), reversal())
	require.NoError(t, err)

	assert.Equal(t, models.EngineInfo{Name: "smc-engine", Version: "0.1.0", School: "SMC", GeneratedAt: "2024-03-01T12:00:00Z"}, out.Engine)
	assert.Equal(t, "perpetual", out.Context.Market)
	assert.Equal(t, "bybit-kline", out.Context.CandleSource)
	assert.Equal(t, models.CandleRange{From: t0, To: t0 + 19*step, Limit: 20}, out.Context.Range)

	assert.Equal(t, models.Summary{
		Bias:       models.BiasBearish,
		Decision:   models.DecisionSell,
		Confidence: 65,
		Headline:   "BEARISH bias - SELL",
		KeyReasons: []string{"Bearish market structure"},
	}, out.Summary)

	require.Len(t, out.Signals, 2)
	bos := out.Signals[0]
	assert.Equal(t, "signal-bos-1700006300000", bos.ID)
	assert.Equal(t, models.SignalBOS, bos.Kind)
	assert.Equal(t, "BEARISH BOS", bos.Label)
	assert.Equal(t, "Break of structure at 101", bos.Reason)
	assert.Equal(t, 75, bos.Confidence)
	assert.Equal(t, []models.Anchor{{Time: models.TimeRef{TF: "M15", T: t0 + 7*step}, Price: 101}}, bos.Anchors)

	sweep := out.Signals[1]
	assert.Equal(t, "signal-sweep-sweep-buy-1700001800000", sweep.ID)
	assert.Equal(t, "Buy Side Sweep", sweep.Label)
	assert.Equal(t, models.Bullish, sweep.Direction)
	assert.Equal(t, 70, sweep.Confidence)

	require.Len(t, out.Levels, 3)
	assert.Equal(t, models.LevelEQH, out.Levels[0].Type)
	assert.Equal(t, models.LevelFresh, out.Levels[0].Status)
	assert.InDelta(t, 114.3*0.999, out.Levels[0].Range.Low, 1e-9)
	assert.Equal(t, "level-sweep-buy-1700001800000", out.Levels[2].ID)
	assert.Equal(t, models.LevelBuySideLiquidity, out.Levels[2].Type)
	assert.Equal(t, models.LevelTested, out.Levels[2].Status)
	assert.Equal(t, 60, out.Levels[2].Strength)

	require.Len(t, out.POI, 17)
	assert.Equal(t, models.POIOrderBlock, out.POI[0].Type)
	assert.Equal(t, models.POIConsumed, out.POI[0].Status)
	assert.Equal(t, 40, out.POI[0].Quality.Score)
	assert.Equal(t, models.POIFairValueGap, out.POI[1].Type)
	assert.Equal(t, 30, out.POI[1].Quality.Score)

	assert.Empty(t, out.Setups)
	assert.Equal(t, []models.ScoreComponent{
		{Name: "structure", Value: 70},
		{Name: "liquidity", Value: 60},
		{Name: "poi", Value: 50},
	}, out.Diagnostics.Scores.Components)
	assert.Equal(t, 60, out.Diagnostics.Scores.Total)
	assert.Equal(t, 2, out.Diagnostics.Debug["swingCount"])
	assert.Empty(t, out.Diagnostics.Warnings)
}

func TestEngineProcess_UnknownBias(t *testing.T) {
	out, err := NewEngine(WithSeries("ETHUSDT", "spot", "H1")).Process(context.Background(), bars(flat(12)...))
	require.NoError(t, err)

	assert.Equal(t, "spot", out.Context.Market)
	assert.Equal(t, "H1", out.Context.Timeframe)
	assert.Equal(t, models.DecisionNoTrade, out.Summary.Decision)
	assert.Equal(t, 50, out.Summary.Confidence)
	assert.Equal(t, "UNKNOWN bias - NO_TRADE", out.Summary.Headline)
	assert.Equal(t, []string{"Unclear market structure"}, out.Summary.KeyReasons)
}

func TestEngineProcess_JSONShape(t *testing.T) {
	out, err := NewEngine().Process(context.Background(), bars(flat(10)...))
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, key := range []string{"engine", "context", "summary", "signals", "levels", "poi", "setups", "diagnostics"} {
		assert.Contains(t, doc, key)
	}
	assert.JSONEq(t, `[]`, string(doc["setups"]))
	assert.JSONEq(t, `[]`, string(doc["signals"]))
}

func TestEngineProcess_ValidationIssuesBecomeWarnings(t *testing.T) {
	e := NewEngine(WithValidator(stubValidator{issues: []string{"summary.confidence: lte 100", "poi[0].range.low: gt 0"}}))
	out, err := e.Process(context.Background(), bars(flat(10)...))
	require.NoError(t, err)
	assert.Equal(t, []string{"Schema validation issues: summary.confidence: lte 100, poi[0].range.low: gt 0"}, out.Diagnostics.Warnings)
}

func TestBuildSetups(t *testing.T) {
	e := NewEngine()
	candles := bars(flat(10)...)
	choch := &models.StructureBreak{Index: 5, Time: t0 + 5*step, Price: 101, Direction: models.Bullish}
	ms := models.MarketStructure{Bias: models.BiasBullish, LastCHoCH: choch}
	sweeps := []models.LiquiditySweep{
		{ID: "sweep-buy-1", Type: models.SweepBuySide},
		{ID: "sweep-buy-2", Type: models.SweepBuySide},
	}
	ob := models.POI{ID: "ob-bullish-9", Kind: models.POIOrderBlock, Direction: models.Bullish, Time: t0 + 3*step,
		Range: models.PriceRange{Low: 99, High: 101}, Freshness: models.Freshness{IsFresh: true}}
	far := models.POI{ID: "fvg-bullish-8", Kind: models.POIFairValueGap, Direction: models.Bullish,
		Range: models.PriceRange{Low: 104, High: 105}, Freshness: models.Freshness{IsFresh: true}}
	stale := models.POI{ID: "ob-bullish-7", Kind: models.POIOrderBlock, Direction: models.Bullish,
		Range: models.PriceRange{Low: 100.4, High: 100.6}}

	setups := e.buildSetups(candles, ms, sweeps, []models.POI{stale, ob}, []models.POI{far}, fixedNow)

	require.Len(t, setups, 1)
	s := setups[0]
	assert.Equal(t, "setup-1709294400000", s.ID)
	assert.Equal(t, "Sweep -> CHoCH -> POI", s.Name)
	assert.Equal(t, models.SideBuy, s.Direction)
	assert.Equal(t, models.SetupWait, s.Status)
	assert.Equal(t, ob.Range, s.Entry.Zone)
	assert.Equal(t, "CHOCH_CONFIRM", s.Entry.Trigger.Type)
	assert.Equal(t, models.TimeRef{TF: "M15", T: candles[9].T}, s.Entry.ValidFrom)
	assert.InDelta(t, 98.505, s.Risk.StopLoss, 1e-9)
	assert.Equal(t, "BELOW_OB", s.Risk.Invalidation.Type)
	assert.Equal(t, ob.Time, s.Risk.Invalidation.Anchor.Time.T)
	assert.Equal(t, 2.0, s.Risk.RRMin)
	require.Len(t, s.Targets, 1)
	assert.InDelta(t, 103.02, s.Targets[0].Price, 1e-9)
	assert.Equal(t, "TP1", s.Targets[0].Label)
	assert.Equal(t, 70.0, s.Confidence)
	assert.Len(t, s.Reasons, 3)
	assert.Equal(t, []string{"ob-bullish-9"}, s.Confluence.POIIDs)
	assert.Equal(t, []string{"signal-choch-1700004500000", "signal-sweep-sweep-buy-2"}, s.Confluence.SignalIDs)
}

func TestBuildSetups_Bearish(t *testing.T) {
	e := NewEngine()
	ms := models.MarketStructure{Bias: models.BiasBearish, LastCHoCH: &models.StructureBreak{Time: 1, Direction: models.Bearish}}
	ob := models.POI{ID: "ob-bearish-1", Direction: models.Bearish, Range: models.PriceRange{Low: 102, High: 103},
		Freshness: models.Freshness{IsFresh: true}}

	setups := e.buildSetups(bars(flat(10)...), ms, []models.LiquiditySweep{{ID: "sweep-sell-1"}}, []models.POI{ob}, nil, fixedNow)

	require.Len(t, setups, 1)
	assert.Equal(t, models.SideSell, setups[0].Direction)
	assert.InDelta(t, 103.515, setups[0].Risk.StopLoss, 1e-9)
	assert.InDelta(t, 99.96, setups[0].Targets[0].Price, 1e-9)
	assert.Equal(t, "ABOVE_OB", setups[0].Risk.Invalidation.Type)
}

func TestBuildSetups_Preconditions(t *testing.T) {
	e := NewEngine()
	candles := bars(flat(10)...)
	choch := &models.StructureBreak{Direction: models.Bullish}
	fresh := models.POI{Direction: models.Bullish, Range: models.PriceRange{Low: 99, High: 100}, Freshness: models.Freshness{IsFresh: true}}
	sweeps := []models.LiquiditySweep{{ID: "s"}}

	assert.Empty(t, e.buildSetups(candles, models.MarketStructure{LastCHoCH: choch}, nil, []models.POI{fresh}, nil, fixedNow))
	assert.Empty(t, e.buildSetups(candles, models.MarketStructure{}, sweeps, []models.POI{fresh}, nil, fixedNow))

	wrongSide := fresh
	wrongSide.Direction = models.Bearish
	assert.Empty(t, e.buildSetups(candles, models.MarketStructure{LastCHoCH: choch}, sweeps, []models.POI{wrongSide}, nil, fixedNow))
}

func TestBuildSummary_Bonuses(t *testing.T) {
	ms := models.MarketStructure{Bias: models.BiasBullish}
	sweeps := []models.LiquiditySweep{{Type: models.SweepBuySide}}
	obs := []models.POI{{Direction: models.Bullish, Freshness: models.Freshness{IsFresh: true}}}

	s := buildSummary(ms, sweeps, obs)
	assert.Equal(t, models.DecisionBuy, s.Decision)
	assert.Equal(t, 85, s.Confidence)
	assert.Equal(t, []string{"Bullish market structure", "Buy-side liquidity sweep", "Fresh bullish order block"}, s.KeyReasons)

	s = buildSummary(ms, nil, nil)
	assert.Equal(t, models.DecisionWaitConfirmation, s.Decision)
	assert.Equal(t, 65, s.Confidence)
}

func TestOutputValidator(t *testing.T) {
	out, err := NewEngine().Process(context.Background(), reversal())
	require.NoError(t, err)
	assert.Empty(t, NewOutputValidator().Validate(out))

	out.Summary.Confidence = 150
	out.Engine.School = "ICT"
	issues := NewOutputValidator().Validate(out)
	assert.Contains(t, issues, "summary.confidence: lte 100")
	assert.Contains(t, issues, "engine.school: eq SMC")
}

func TestThresholdsFromParams(t *testing.T) {
	candles := bars(flat(15)...)

	assert.Equal(t, DefaultThresholds(), ThresholdsFromParams(candles, nil))

	th := ThresholdsFromParams(candles, map[string]any{
		"swingLen":                 4.0,
		"sweepWickMin":             0.15,
		"displacementMin":          1.2,
		"fvgMinSize":               0.1,
		"obRangeMode":              "body",
		"requireDisplacementForOB": true,
	})
	assert.Equal(t, 4, th.FractalLen)
	assert.True(t, th.OrderBlocks.BodyRange)
	assert.InDelta(t, 0.15*2/100.5*100, th.SweepMarginPct, 1e-9)
	assert.InDelta(t, 1.2*2/100.5*100, th.OrderBlocks.DisplacementPct, 1e-9)
	assert.InDelta(t, 0.2, th.FVGMinGap, 1e-9)

	th = ThresholdsFromParams(candles[:5], map[string]any{"sweepWickMin": 0.15, "requireDisplacementForOB": false})
	assert.Equal(t, DefaultSweepMarginPct, th.SweepMarginPct, "no ATR without history")
	assert.Zero(t, th.OrderBlocks.DisplacementPct)
}

func TestAnalyzer_UsesSettings(t *testing.T) {
	a := NewAnalyzer(NewOutputValidator())
	a.now = clock

	out, err := a.Analyze(context.Background(), reversal(), settings("BTCUSDT", "M15", nil))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", out.Context.Symbol)
	assert.Equal(t, "2024-03-01T12:00:00Z", out.Engine.GeneratedAt)
	assert.Equal(t, 3, out.Diagnostics.Params["fractalLen"])
}
