package usecase

import (
	"context"
	"errors"
	"sync"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	domsvc "SmcDesk/internal/domain/service"
)

type recordingMetrics struct {
	mu          sync.Mutex
	analyses    []models.Decision
	transitions []string
	rejections  []string
	errors      []string
	fallbacks   []string
	lastClose   map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{lastClose: map[string]float64{}}
}

func (m *recordingMetrics) RecordAnalysis(_, _ string, d models.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, d)
}

func (m *recordingMetrics) RecordTransition(from, to models.OrderState, reason models.CloseReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, string(from)+">"+string(to)+":"+string(reason))
}

func (m *recordingMetrics) RecordRejection(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, code)
}

func (m *recordingMetrics) RecordStoreFallback(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, op)
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *recordingMetrics) RecordLastClose(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastClose[symbol] = price
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type fakeSource struct {
	candles []models.Candle
	err     error
	queries []domrepo.CandleQuery
}

func (s *fakeSource) GetLatestCandles(_ context.Context, q domrepo.CandleQuery) ([]models.Candle, error) {
	s.queries = append(s.queries, q)
	return s.candles, s.err
}

type fakeAnalyzer struct {
	calls    int
	settings domsvc.AnalysisSettings
	err      error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, candles []models.Candle, s domsvc.AnalysisSettings) (*models.SmcOutput, error) {
	a.calls++
	a.settings = s
	if a.err != nil {
		return nil, a.err
	}
	return &models.SmcOutput{
		Summary:     models.Summary{Decision: models.DecisionWaitConfirmation, Confidence: 60},
		Diagnostics: models.Diagnostics{Params: s.Params, Warnings: []string{}},
	}, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]models.Transition
	candles []models.ClosedCandleEvent
	err     error
}

func (p *fakePublisher) PublishTransitions(_ context.Context, trs []models.Transition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, trs)
	return p.err
}

func (p *fakePublisher) PublishClosedCandle(_ context.Context, ev models.ClosedCandleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles = append(p.candles, ev)
	return p.err
}

type fakeCandleStore struct {
	fakeSource
	inserted []models.Candle
}

func (s *fakeCandleStore) InsertCandles(_ context.Context, _ string, _ domrepo.Timeframe, candles []models.Candle) error {
	s.inserted = append(s.inserted, candles...)
	return nil
}

var errBoom = errors.New("boom")

func buySetup() *models.Setup {
	return &models.Setup{
		ID:         "setup-1",
		Name:       "Sweep -> CHoCH -> POI",
		Direction:  models.SideBuy,
		Status:     models.SetupWait,
		Timeframe:  "M15",
		Entry:      models.SetupEntry{Mode: "limit", Zone: models.PriceRange{Low: 100, High: 102}},
		Risk:       models.SetupRisk{StopLoss: 98, RRMin: 2},
		Targets:    []models.Target{{Type: "liquidity", Price: 106, Label: "TP1"}},
		Confidence: 70,
		Reasons:    []string{"sweep", "choch", "ob"},
	}
}

func ptrTo[T any](v T) *T { return &v }
