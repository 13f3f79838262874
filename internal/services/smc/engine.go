package smc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SmcDesk/internal/domain/models"
	domsvc "SmcDesk/internal/domain/service"
)

const (
	EngineName    = "smc-engine"
	EngineVersion = "0.1.0"
	School        = "SMC"
	// MinCandles is the smallest window the engine accepts.
	MinCandles = 10
)

var ErrInsufficientCandles = errors.New("insufficient candles for analysis")

// Thresholds holds the detector constants of one run.
type Thresholds struct {
	FractalLen     int
	SweepMarginPct float64
	OrderBlocks    OrderBlockOptions
	FVGMinGap      float64
}

// DefaultThresholds reproduces the fixed constants used when no parameter
// set is supplied.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FractalLen:     DefaultFractalLen,
		SweepMarginPct: DefaultSweepMarginPct,
		OrderBlocks:    OrderBlockOptions{DisplacementPct: DefaultDisplacementPct},
	}
}

type Engine struct {
	symbol       string
	category     string
	timeframe    string
	tz           string
	candleSource string
	th           Thresholds
	params       map[string]any
	validator    domsvc.OutputValidator
	now          func() time.Time
}

type Option func(*Engine)

func WithSeries(symbol, category, timeframe string) Option {
	return func(e *Engine) {
		if symbol != "" {
			e.symbol = symbol
		}
		if category != "" {
			e.category = category
		}
		if timeframe != "" {
			e.timeframe = timeframe
		}
	}
}

func WithTZ(tz string) Option {
	return func(e *Engine) {
		if tz != "" {
			e.tz = tz
		}
	}
}

func WithCandleSource(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.candleSource = name
		}
	}
}

func WithThresholds(th Thresholds) Option { return func(e *Engine) { e.th = th } }

// WithParams records the resolved parameter set in diagnostics.
func WithParams(p map[string]any) Option { return func(e *Engine) { e.params = p } }

func WithValidator(v domsvc.OutputValidator) Option { return func(e *Engine) { e.validator = v } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		symbol:       "BTCUSDT",
		category:     "linear",
		timeframe:    "M15",
		tz:           "UTC",
		candleSource: "bybit-kline",
		th:           DefaultThresholds(),
		validator:    NewOutputValidator(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs the pipeline over candles sorted ascending by time. Every
// window of at least MinCandles produces a document; schema problems are
// reported as warnings.
func (e *Engine) Process(ctx context.Context, candles []models.Candle) (*models.SmcOutput, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientCandles, len(candles), MinCandles)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	swings := DetectSwings(candles, e.th.FractalLen)
	structure := AnalyzeStructure(candles, swings)
	eqLevels := DetectEquilibriumLevels(swings)
	sweeps := DetectSweeps(candles, eqLevels, e.th.SweepMarginPct)
	obs := RefreshFreshness(DetectOrderBlocks(candles, e.th.OrderBlocks), candles)
	fvgs := RefreshFreshness(DetectFairValueGaps(candles, e.th.FVGMinGap), candles)

	now := e.now().UTC()
	out := &models.SmcOutput{
		Engine: models.EngineInfo{
			Name:        EngineName,
			Version:     EngineVersion,
			School:      School,
			GeneratedAt: now.Format(time.RFC3339Nano),
		},
		Context: models.AnalysisContext{
			Symbol:       e.symbol,
			Market:       marketOf(e.category),
			Category:     e.category,
			Timeframe:    e.timeframe,
			TZ:           e.tz,
			CandleSource: e.candleSource,
			Range: models.CandleRange{
				From:  candles[0].T,
				To:    candles[len(candles)-1].T,
				Limit: len(candles),
			},
		},
		Signals:     e.buildSignals(structure, sweeps),
		Levels:      e.buildLevels(eqLevels, sweeps),
		POI:         e.buildPOIEntries(obs, fvgs),
		Setups:      e.buildSetups(candles, structure, sweeps, obs, fvgs, now),
		Summary:     buildSummary(structure, sweeps, obs),
		Diagnostics: e.buildDiagnostics(structure, swings, sweeps, len(obs)+len(fvgs)),
	}

	if e.validator != nil {
		if issues := e.validator.Validate(out); len(issues) > 0 {
			out.Diagnostics.Warnings = append(out.Diagnostics.Warnings,
				"Schema validation issues: "+strings.Join(issues, ", "))
		}
	}
	return out, nil
}

func marketOf(category string) string {
	if category == "spot" {
		return "spot"
	}
	return "perpetual"
}
