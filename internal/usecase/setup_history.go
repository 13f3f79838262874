package usecase

import (
	"context"
	"fmt"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/internal/services/orders"
	applogger "SmcDesk/pkg/logger"
)

// SetupHistoryUseCase records applications of presets and setups.
type SetupHistoryUseCase struct {
	store  domrepo.SetupHistoryStore
	logger *applogger.Logger
	now    func() time.Time
}

func NewSetupHistoryUseCase(store domrepo.SetupHistoryStore, l *applogger.Logger) *SetupHistoryUseCase {
	return &SetupHistoryUseCase{
		store:  store,
		logger: l.With(applogger.String("component", "setup_history")),
		now:    time.Now,
	}
}

// List returns entries newest first.
func (uc *SetupHistoryUseCase) List(ctx context.Context) ([]models.SetupHistoryEntry, error) {
	entries, err := uc.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list setup history: %w", err)
	}
	if entries == nil {
		entries = []models.SetupHistoryEntry{}
	}
	return entries, nil
}

// Add stores a new pending entry.
func (uc *SetupHistoryUseCase) Add(ctx context.Context, req *models.AddSetupHistoryRequest) (*models.SetupHistoryEntry, error) {
	now := uc.now().UTC()
	p := req.Params
	if p == nil {
		p = map[string]any{}
	}
	e := models.SetupHistoryEntry{
		ID:            orders.NewID("sh", now),
		AppliedAt:     now,
		PresetID:      req.PresetID,
		Params:        p,
		Symbol:        req.Symbol,
		Timeframe:     req.Timeframe,
		Source:        req.Source,
		CandleTime:    req.CandleTime,
		SetupSnapshot: req.SetupSnapshot,
		Status:        models.HistoryPending,
		UpdatedAt:     &now,
	}
	if e.Source != models.HistorySourceChart {
		e.Source = models.HistorySourceSetup
	}
	if err := uc.store.Add(ctx, e); err != nil {
		return nil, fmt.Errorf("add setup history: %w", err)
	}
	uc.logger.Debug("setup history added", applogger.String("id", e.ID), applogger.String("source", string(e.Source)))
	return &e, nil
}

// UpdateStatus marks an entry success or failed.
func (uc *SetupHistoryUseCase) UpdateStatus(ctx context.Context, req *models.PatchSetupHistoryRequest) (*models.SetupHistoryEntry, error) {
	return uc.store.UpdateStatus(ctx, req.ID, req.Status, uc.now().UTC())
}
