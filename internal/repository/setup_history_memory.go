package repository

import (
	"context"
	"sync"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
)

// MemorySetupHistory keeps entries newest first in process memory.
type MemorySetupHistory struct {
	mu      sync.RWMutex
	entries []models.SetupHistoryEntry
}

func NewMemorySetupHistory() *MemorySetupHistory { return &MemorySetupHistory{} }

func (s *MemorySetupHistory) List(_ context.Context) ([]models.SetupHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SetupHistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemorySetupHistory) Add(_ context.Context, e models.SetupHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]models.SetupHistoryEntry{e}, s.entries...)
	return nil
}

func (s *MemorySetupHistory) UpdateStatus(_ context.Context, id string, status models.HistoryStatus, at time.Time) (*models.SetupHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Status = status
			s.entries[i].UpdatedAt = &at
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, domrepo.ErrEntryNotFound
}

func (s *MemorySetupHistory) Close() error { return nil }

var _ domrepo.SetupHistoryStore = (*MemorySetupHistory)(nil)
