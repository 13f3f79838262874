package repository

import (
	"context"
	"sort"
	"sync"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
)

// MemoryOrderStore is a process-local OrderStore, used for backend=memory and tests.
type MemoryOrderStore struct {
	mu    sync.RWMutex
	parts map[domrepo.Partition][]models.VirtualOrder
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{parts: make(map[domrepo.Partition][]models.VirtualOrder)}
}

func (s *MemoryOrderStore) Load(_ context.Context, p domrepo.Partition) ([]models.VirtualOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrders(s.parts[p]), nil
}

func (s *MemoryOrderStore) Save(_ context.Context, p domrepo.Partition, orders []models.VirtualOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts[p] = cloneOrders(orders)
	return nil
}

func (s *MemoryOrderStore) Partitions(_ context.Context) ([]domrepo.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domrepo.Partition, 0, len(s.parts))
	for p := range s.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func cloneOrders(in []models.VirtualOrder) []models.VirtualOrder {
	out := make([]models.VirtualOrder, len(in))
	copy(out, in)
	return out
}

var _ domrepo.OrderStore = (*MemoryOrderStore)(nil)
