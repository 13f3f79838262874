package smc

import (
	"context"
	"encoding/json"
	"time"

	"SmcDesk/internal/domain/models"
	domsvc "SmcDesk/internal/domain/service"
)

const atrPeriod = 14

// Analyzer adapts Engine to the domain Analyzer interface, building a fresh
// engine per call from the request settings.
type Analyzer struct {
	validator domsvc.OutputValidator
	now       func() time.Time
}

func NewAnalyzer(v domsvc.OutputValidator) *Analyzer {
	return &Analyzer{validator: v, now: time.Now}
}

func (a *Analyzer) Analyze(ctx context.Context, candles []models.Candle, s domsvc.AnalysisSettings) (*models.SmcOutput, error) {
	e := NewEngine(
		WithSeries(s.Symbol, s.Category, s.Timeframe),
		WithTZ(s.TZ),
		WithCandleSource(s.CandleSource),
		WithThresholds(ThresholdsFromParams(candles, s.Params)),
		WithParams(s.Params),
		WithValidator(a.validator),
		WithClock(a.now),
	)
	return e.Process(ctx, candles)
}

// ThresholdsFromParams maps a resolved parameter set onto detector
// thresholds. ATR-denominated keys are converted with the 14-period ATR and
// the latest close; without enough history the fixed percentages apply.
// Keys not listed here only shape the UI.
func ThresholdsFromParams(candles []models.Candle, p map[string]any) Thresholds {
	th := DefaultThresholds()
	if len(p) == 0 {
		return th
	}

	if v, ok := number(p["swingLen"]); ok && v >= 1 {
		th.FractalLen = int(v)
	}
	if v, ok := p["obRangeMode"].(string); ok {
		th.OrderBlocks.BodyRange = v == "body"
	}

	atr := ATR(candles, atrPeriod)
	last := 0.0
	if len(candles) > 0 {
		last = candles[len(candles)-1].C
	}
	if atr > 0 && last > 0 {
		if v, ok := number(p["sweepWickMin"]); ok {
			th.SweepMarginPct = v * atr / last * 100
		}
		if v, ok := number(p["displacementMin"]); ok {
			th.OrderBlocks.DisplacementPct = v * atr / last * 100
		}
		if v, ok := number(p["fvgMinSize"]); ok {
			th.FVGMinGap = v * atr
		}
	}
	if v, ok := p["requireDisplacementForOB"].(bool); ok && !v {
		th.OrderBlocks.DisplacementPct = 0
	}
	return th
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

var _ domsvc.Analyzer = (*Analyzer)(nil)
