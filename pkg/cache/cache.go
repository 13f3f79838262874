package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	ErrLockHeld  = errors.New("cache: lock held by another owner")

	// ErrLockBackend wraps failures of the lock store itself, as opposed to contention.
	ErrLockBackend = errors.New("cache: lock backend unavailable")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// Key joins parts with ':'.
func Key(parts ...interface{}) string {
	s := make([]string, 0, len(parts))
	for _, p := range parts {
		s = append(s, fmt.Sprint(p))
	}
	return strings.Join(s, ":")
}

// HashKey returns a short stable digest usable inside a key.
func HashKey(raw []byte) string {
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:8])
}

// WithLock runs fn while holding key; it polls until ctx is done.
func WithLock(ctx context.Context, c Service, key string, ttl time.Duration, fn func() error) error {
	for {
		ok, err := c.TryLock(ctx, key, ttl)
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w: %w", key, ErrLockBackend, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire lock %s: %w", key, ErrLockHeld)
		case <-time.After(20 * time.Millisecond):
		}
	}
	defer func() { _ = c.Unlock(context.WithoutCancel(ctx), key) }()
	return fn()
}
