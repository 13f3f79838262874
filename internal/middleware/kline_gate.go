package middleware

import (
	"sync"
	"time"

	domrepo "SmcDesk/internal/domain/repository"
)

// KlineGate sits between the kline stream and the candle feed. It drops
// malformed updates and throttles intra-bar ticks per series; confirmed bars
// always pass.
type KlineGate struct {
	metrics  domrepo.Metrics
	maxRPS   int
	now      func() time.Time
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

type GateOption func(*KlineGate)

// WithMaxRPS caps unconfirmed ticks per second per series; 0 disables the throttle.
func WithMaxRPS(n int) GateOption {
	return func(g *KlineGate) {
		if n >= 0 {
			g.maxRPS = n
		}
	}
}

func WithClock(now func() time.Time) GateOption {
	return func(g *KlineGate) { g.now = now }
}

func NewKlineGate(metrics domrepo.Metrics, opts ...GateOption) *KlineGate {
	g := &KlineGate{
		metrics:  metrics,
		maxRPS:   2,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow reports whether u should reach the feed.
func (g *KlineGate) Allow(u domrepo.KlineUpdate) bool {
	if !validKline(u) {
		g.record("feed_invalid_kline")
		return false
	}
	if u.Confirmed || g.maxRPS == 0 {
		return true
	}

	key := u.Symbol + "|" + string(u.Timeframe)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()
	last, seen := g.lastSeen[key]
	if seen && now.Sub(last) < time.Second/time.Duration(g.maxRPS) {
		return false
	}
	g.lastSeen[key] = now
	return true
}

func (g *KlineGate) record(kind string) {
	if g.metrics != nil {
		g.metrics.RecordError(kind)
	}
}

func validKline(u domrepo.KlineUpdate) bool {
	c := u.Candle
	if u.Symbol == "" || c.T <= 0 {
		return false
	}
	if c.O < 0 || c.H < 0 || c.L < 0 || c.C < 0 || c.V < 0 {
		return false
	}
	return c.H >= c.L
}
