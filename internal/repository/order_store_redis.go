package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
)

// RedisOrderStore keeps each partition as one JSON value and tracks the
// known partitions in a set.
type RedisOrderStore struct {
	client *redis.Client
	prefix string
}

func NewRedisOrderStore(client *redis.Client, prefix string) *RedisOrderStore {
	return &RedisOrderStore{client: client, prefix: prefix}
}

func (s *RedisOrderStore) key(p domrepo.Partition) string {
	return fmt.Sprintf("%s:orders:%s:%s", s.prefix, p.Symbol, p.Timeframe)
}

func (s *RedisOrderStore) indexKey() string { return s.prefix + ":orders:partitions" }

func (s *RedisOrderStore) Load(ctx context.Context, p domrepo.Partition) ([]models.VirtualOrder, error) {
	b, err := s.client.Get(ctx, s.key(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.VirtualOrder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", p, err)
	}
	var orders []models.VirtualOrder
	if err := json.Unmarshal(b, &orders); err != nil {
		return nil, fmt.Errorf("decode orders %s: %w", p, err)
	}
	if orders == nil {
		orders = []models.VirtualOrder{}
	}
	return orders, nil
}

func (s *RedisOrderStore) Save(ctx context.Context, p domrepo.Partition, orders []models.VirtualOrder) error {
	b, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode orders %s: %w", p, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(p), b, 0)
	pipe.SAdd(ctx, s.indexKey(), p.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", p, err)
	}
	return nil
}

func (s *RedisOrderStore) Partitions(ctx context.Context) ([]domrepo.Partition, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis partitions: %w", err)
	}
	out := make([]domrepo.Partition, 0, len(members))
	for _, m := range members {
		sym, tf, ok := strings.Cut(m, "|")
		if !ok {
			continue
		}
		out = append(out, domrepo.Partition{Symbol: sym, Timeframe: tf})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

var _ domrepo.OrderStore = (*RedisOrderStore)(nil)
