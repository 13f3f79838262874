package service

import (
	"context"

	"SmcDesk/internal/domain/models"
)

// AnalysisSettings describes the series being analysed and the resolved
// parameter set that tunes the detectors.
type AnalysisSettings struct {
	Symbol       string
	Category     string
	Timeframe    string
	TZ           string
	CandleSource string
	Params       map[string]any
}

// Analyzer runs the SMC pipeline over an ascending candle window.
type Analyzer interface {
	Analyze(ctx context.Context, candles []models.Candle, s AnalysisSettings) (*models.SmcOutput, error)
}

// OutputValidator checks a finished document; problems are returned as
// messages and never abort the analysis.
type OutputValidator interface {
	Validate(out *models.SmcOutput) []string
}
