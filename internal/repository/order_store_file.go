package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
)

// FileOrderStore keeps one JSON document per partition under dir.
type FileOrderStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

type orderDocument struct {
	Orders    []models.VirtualOrder `json:"orders"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

func NewFileOrderStore(dir string) (*FileOrderStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create order dir: %w", err)
	}
	return &FileOrderStore{dir: dir, now: time.Now}, nil
}

func (s *FileOrderStore) Load(_ context.Context, p domrepo.Partition) ([]models.VirtualOrder, error) {
	path, err := s.path(p)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.VirtualOrder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read orders %s: %w", p, err)
	}
	var doc orderDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode orders %s: %w", p, err)
	}
	if doc.Orders == nil {
		doc.Orders = []models.VirtualOrder{}
	}
	return doc.Orders, nil
}

// Save writes through a temp file and rename so readers never see a torn document.
func (s *FileOrderStore) Save(_ context.Context, p domrepo.Partition, orders []models.VirtualOrder) error {
	path, err := s.path(p)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(orderDocument{Orders: orders, UpdatedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode orders %s: %w", p, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".orders-*.tmp")
	if err != nil {
		return fmt.Errorf("write orders %s: %w", p, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write orders %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write orders %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write orders %s: %w", p, err)
	}
	return nil
}

func (s *FileOrderStore) Partitions(_ context.Context) ([]domrepo.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]domrepo.Partition, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		sym, tf, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "_")
		if !ok {
			continue
		}
		out = append(out, domrepo.Partition{Symbol: sym, Timeframe: tf})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *FileOrderStore) path(p domrepo.Partition) (string, error) {
	if !validPartPart(p.Symbol) || !validPartPart(p.Timeframe) {
		return "", fmt.Errorf("invalid partition %q", p.String())
	}
	return filepath.Join(s.dir, p.Symbol+"_"+p.Timeframe+".json"), nil
}

func validPartPart(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

var _ domrepo.OrderStore = (*FileOrderStore)(nil)
