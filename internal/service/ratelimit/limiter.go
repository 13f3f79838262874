package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

type bucket struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

// Limiter holds one token bucket per key (client address, upstream host).
// Buckets idle longer than the idle TTL are dropped when new keys arrive.
type Limiter struct {
	mu        sync.RWMutex
	buckets   map[string]*bucket
	rps       float64
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type Option func(*Limiter)

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(rps float64, burst int, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rps:     rps,
		burst:   burst,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		b.lastSeen.Store(now.UnixNano())
		return b.lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		b.lastSeen.Store(now.UnixNano())
		return b.lim
	}
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	b = &bucket{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
	b.lastSeen.Store(now.UnixNano())
	l.buckets[key] = b
	return b.lim
}

// sweep drops idle buckets; caller holds the write lock.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.idleTTL).UnixNano()
	for k, b := range l.buckets {
		if b.lastSeen.Load() < cutoff {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Allow consumes one token for key without waiting.
func (l *Limiter) Allow(key string) bool { return l.get(key).Allow() }

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error { return l.get(key).Wait(ctx) }
