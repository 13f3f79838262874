package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowIsPerKey(t *testing.T) {
	l := New(0.001, 2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	assert.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "k"))
}

func TestLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(1, 1, WithIdleTTL(10*time.Minute), WithClock(func() time.Time { return now }))

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	now = now.Add(5 * time.Minute)
	l.Allow("10.0.0.1")

	now = now.Add(6 * time.Minute)
	l.Allow("10.0.0.3")
	assert.Equal(t, 2, l.Len(), "idle 10.0.0.2 should be dropped, recent keys kept")

	// A dropped key comes back with a fresh bucket.
	assert.True(t, l.Allow("10.0.0.2"))
	assert.Equal(t, 3, l.Len())
}
