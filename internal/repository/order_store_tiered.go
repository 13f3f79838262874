package repository

import (
	"context"
	"fmt"
	"sync"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/pkg/cache"
	applogger "SmcDesk/pkg/logger"
)

// TieredOrderStore fronts a durable store with an in-memory last-good
// snapshot. Reads fall back to the snapshot when the durable tier fails;
// writes always land in the snapshot and a durable failure is only logged.
// A partition whose durable write failed stays dirty and is served from the
// snapshot until a later write reaches the durable tier.
type TieredOrderStore struct {
	durable  domrepo.OrderStore
	snapshot cache.Service
	metrics  domrepo.Metrics
	l        *applogger.Logger

	mu    sync.Mutex
	dirty map[domrepo.Partition]struct{}
}

func NewTieredOrderStore(durable domrepo.OrderStore, snapshot cache.Service, metrics domrepo.Metrics, l *applogger.Logger) *TieredOrderStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &TieredOrderStore{
		durable:  durable,
		snapshot: snapshot,
		metrics:  metrics,
		l:        l.With(applogger.String("component", "order_store")),
		dirty:    make(map[domrepo.Partition]struct{}),
	}
}

func snapshotKey(p domrepo.Partition) string { return cache.Key("orders", p.Symbol, p.Timeframe) }

const partitionsKey = "orders:partitions"

func (s *TieredOrderStore) Load(ctx context.Context, p domrepo.Partition) ([]models.VirtualOrder, error) {
	if s.isDirty(p) {
		var last []models.VirtualOrder
		if err := s.snapshot.Get(ctx, snapshotKey(p), &last); err == nil {
			if err := s.durable.Save(ctx, p, last); err != nil {
				s.fallback("load", p, err)
			} else {
				s.setDirty(p, false)
			}
			return last, nil
		}
		// Snapshot gone: the durable copy is all that is left.
		s.setDirty(p, false)
	}

	orders, err := s.durable.Load(ctx, p)
	if err == nil {
		_ = s.snapshot.Set(ctx, snapshotKey(p), orders, 0)
		return orders, nil
	}

	var last []models.VirtualOrder
	if cerr := s.snapshot.Get(ctx, snapshotKey(p), &last); cerr != nil {
		return nil, err
	}
	s.fallback("load", p, err)
	return last, nil
}

func (s *TieredOrderStore) Save(ctx context.Context, p domrepo.Partition, orders []models.VirtualOrder) error {
	if err := s.snapshot.Set(ctx, snapshotKey(p), orders, 0); err != nil {
		return fmt.Errorf("snapshot orders %s: %w", p, err)
	}
	s.rememberPartition(ctx, p)
	if err := s.durable.Save(ctx, p, orders); err != nil {
		s.setDirty(p, true)
		s.fallback("save", p, err)
		return nil
	}
	s.setDirty(p, false)
	return nil
}

func (s *TieredOrderStore) isDirty(p domrepo.Partition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[p]
	return ok
}

func (s *TieredOrderStore) setDirty(p domrepo.Partition, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dirty {
		s.dirty[p] = struct{}{}
	} else {
		delete(s.dirty, p)
	}
}

func (s *TieredOrderStore) Partitions(ctx context.Context) ([]domrepo.Partition, error) {
	parts, err := s.durable.Partitions(ctx)
	if err == nil {
		return mergePartitions(parts, s.knownPartitions(ctx)), nil
	}
	known := s.knownPartitions(ctx)
	if len(known) == 0 {
		return nil, err
	}
	s.fallback("partitions", domrepo.Partition{}, err)
	return known, nil
}

func (s *TieredOrderStore) rememberPartition(ctx context.Context, p domrepo.Partition) {
	known := s.knownPartitions(ctx)
	for _, k := range known {
		if k == p {
			return
		}
	}
	_ = s.snapshot.Set(ctx, partitionsKey, append(known, p), 0)
}

func (s *TieredOrderStore) knownPartitions(ctx context.Context) []domrepo.Partition {
	var known []domrepo.Partition
	_ = s.snapshot.Get(ctx, partitionsKey, &known)
	return known
}

func (s *TieredOrderStore) fallback(op string, p domrepo.Partition, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreFallback(op)
	}
	s.l.Warn("durable order store failed, using memory snapshot",
		applogger.String("op", op),
		applogger.String("partition", p.String()),
		applogger.Error(err),
	)
}

func mergePartitions(a, b []domrepo.Partition) []domrepo.Partition {
	seen := make(map[domrepo.Partition]struct{}, len(a)+len(b))
	out := make([]domrepo.Partition, 0, len(a)+len(b))
	for _, list := range [][]domrepo.Partition{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

var _ domrepo.OrderStore = (*TieredOrderStore)(nil)
