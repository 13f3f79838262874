package smc

import (
	"strings"

	"SmcDesk/internal/domain/models"
)

const maxKeyReasons = 5

type biasSide struct {
	dir         models.Direction
	sweep       models.SweepType
	trade       models.Decision
	structure   string
	sweepReason string
	obReason    string
}

var biasSides = map[models.Bias]biasSide{
	models.BiasBullish: {
		dir: models.Bullish, sweep: models.SweepBuySide, trade: models.DecisionBuy,
		structure: "Bullish market structure", sweepReason: "Buy-side liquidity sweep", obReason: "Fresh bullish order block",
	},
	models.BiasBearish: {
		dir: models.Bearish, sweep: models.SweepSellSide, trade: models.DecisionSell,
		structure: "Bearish market structure", sweepReason: "Sell-side liquidity sweep", obReason: "Fresh bearish order block",
	},
}

func buildSummary(ms models.MarketStructure, sweeps []models.LiquiditySweep, obs []models.POI) models.Summary {
	decision, confidence := models.DecisionNoTrade, 50
	var reasons []string

	if side, ok := biasSides[ms.Bias]; ok {
		decision = models.DecisionWaitConfirmation
		if len(sweeps) > 0 {
			decision = side.trade
		}
		confidence = 65
		reasons = append(reasons, side.structure)
		if hasSweep(sweeps, side.sweep) {
			reasons = append(reasons, side.sweepReason)
			confidence += 10
		}
		if hasFreshOB(obs, side.dir) {
			reasons = append(reasons, side.obReason)
			confidence += 10
		}
	} else {
		reasons = append(reasons, "Unclear market structure")
	}

	if confidence > 100 {
		confidence = 100
	}
	if len(reasons) > maxKeyReasons {
		reasons = reasons[:maxKeyReasons]
	}
	return models.Summary{
		Bias:       ms.Bias,
		Decision:   decision,
		Confidence: confidence,
		Headline:   strings.ToUpper(string(ms.Bias)) + " bias - " + string(decision),
		KeyReasons: reasons,
	}
}

func (e *Engine) buildDiagnostics(ms models.MarketStructure, swings []models.Swing, sweeps []models.LiquiditySweep, poiCount int) models.Diagnostics {
	structure, liquidity, poi := 30, 40, 30
	if ms.Bias != models.BiasUnknown {
		structure = 70
	}
	if len(sweeps) > 0 {
		liquidity = 60
	}
	if poiCount > 0 {
		poi = 50
	}

	params := map[string]any{
		"fractalLen":            e.th.FractalLen,
		"displacementThreshold": e.th.OrderBlocks.DisplacementPct,
		"sweepMarginPct":        e.th.SweepMarginPct,
	}
	if e.th.FVGMinGap > 0 {
		params["fvgMinGap"] = e.th.FVGMinGap
	}
	if len(e.params) > 0 {
		params["resolved"] = e.params
	}

	return models.Diagnostics{
		Params: params,
		Scores: models.Scores{
			Components: []models.ScoreComponent{
				{Name: "structure", Value: structure},
				{Name: "liquidity", Value: liquidity},
				{Name: "poi", Value: poi},
			},
			Total: 60,
		},
		Warnings: []string{},
		Debug: map[string]any{
			"swingCount":    len(swings),
			"structureBias": ms.Bias,
		},
	}
}

func hasSweep(sweeps []models.LiquiditySweep, t models.SweepType) bool {
	for _, s := range sweeps {
		if s.Type == t {
			return true
		}
	}
	return false
}

func hasFreshOB(obs []models.POI, dir models.Direction) bool {
	for _, ob := range obs {
		if ob.Direction == dir && ob.Freshness.IsFresh {
			return true
		}
	}
	return false
}
