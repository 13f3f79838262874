package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	domsvc "SmcDesk/internal/domain/service"
	"SmcDesk/internal/services/params"
	"SmcDesk/pkg/cache"
	applogger "SmcDesk/pkg/logger"
)

// AnalyzeConfig carries the engine settings that do not come from requests.
type AnalyzeConfig struct {
	TZ           string
	CandleSource string
	CacheTTL     time.Duration
}

// AnalyzeUseCase loads candles, resolves parameters and runs the analyzer.
type AnalyzeUseCase struct {
	source   domrepo.CandleSource
	analyzer domsvc.Analyzer
	catalog  *params.Catalog
	cache    cache.Service
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	cfg      AnalyzeConfig
}

// NewAnalyzeUseCase wires the analysis flow. A nil cache disables result caching.
func NewAnalyzeUseCase(
	source domrepo.CandleSource,
	analyzer domsvc.Analyzer,
	catalog *params.Catalog,
	c cache.Service,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg AnalyzeConfig,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		source:   source,
		analyzer: analyzer,
		catalog:  catalog,
		cache:    c,
		metrics:  metrics,
		logger:   l.With(applogger.String("component", "analyze")),
		cfg:      cfg,
	}
}

// Analyze runs the engine over the posted candles, or over the latest
// candles from the configured source when none are posted.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.SmcOutput, error) {
	start := time.Now()
	candles := req.Candles
	source := "request"
	if len(candles) == 0 {
		var err error
		candles, err = uc.GetCandles(ctx, &models.CandlesRequest{
			Symbol:    req.Symbol,
			Category:  req.Category,
			Timeframe: req.Timeframe,
			Limit:     req.Limit,
		})
		if err != nil {
			return nil, err
		}
		source = uc.cfg.CandleSource
	}

	resolved := uc.catalog.ResolveAndValidate(req.PresetID, req.Params)

	key := ""
	if uc.cache != nil && len(candles) > 0 {
		key = analysisKey(req, candles, resolved.Params)
		var cached models.SmcOutput
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			uc.logger.Warn("analysis cache read failed", applogger.Error(err))
		}
	}

	out, err := uc.analyzer.Analyze(ctx, candles, domsvc.AnalysisSettings{
		Symbol:       req.Symbol,
		Category:     req.Category,
		Timeframe:    req.Timeframe,
		TZ:           uc.cfg.TZ,
		CandleSource: source,
		Params:       resolved.Params,
	})
	if err != nil {
		uc.metrics.RecordError("analyze")
		return nil, fmt.Errorf("analyze %s %s: %w", req.Symbol, req.Timeframe, err)
	}
	for _, w := range resolved.Warnings {
		out.Diagnostics.Warnings = append(out.Diagnostics.Warnings, "params: "+w)
	}

	uc.metrics.RecordAnalysis(req.Symbol, req.Timeframe, out.Summary.Decision)
	uc.metrics.RecordLatency("analyze", time.Since(start).Seconds())

	if key != "" {
		if err := uc.cache.Set(ctx, key, out, uc.cfg.CacheTTL); err != nil {
			uc.logger.Warn("analysis cache write failed", applogger.Error(err))
		}
	}
	return out, nil
}

// GetCandles returns ascending candles from the configured source.
func (uc *AnalyzeUseCase) GetCandles(ctx context.Context, req *models.CandlesRequest) ([]models.Candle, error) {
	tf := domrepo.NormalizeTimeframe(req.Timeframe)
	candles, err := uc.source.GetLatestCandles(ctx, domrepo.CandleQuery{
		Symbol:    req.Symbol,
		Category:  req.Category,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		uc.metrics.RecordError("candle_source")
		return nil, fmt.Errorf("get candles %s %s: %w", req.Symbol, tf, err)
	}
	return candles, nil
}

// analysisKey identifies a result by series, last candle and the resolved
// parameter set. Posted windows also hash their length and last close.
func analysisKey(req *models.AnalyzeRequest, candles []models.Candle, p map[string]any) string {
	last := candles[len(candles)-1]
	raw, _ := json.Marshal(struct {
		Params map[string]any `json:"p"`
		N      int            `json:"n"`
		Close  float64        `json:"c"`
	}{p, len(candles), last.C})
	return cache.Key("analysis", req.Symbol, req.Category, req.Timeframe, last.T, cache.HashKey(raw))
}
