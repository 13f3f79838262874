package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/pkg/cache"
)

var btcM15 = domrepo.Partition{Symbol: "BTCUSDT", Timeframe: "M15"}

func sampleOrders() []models.VirtualOrder {
	fill := 101.0
	return []models.VirtualOrder{
		{ID: "vo_2", Symbol: "BTCUSDT", TF: "M15", Side: models.SideBuy, State: models.OrderOpen, EntryFillPrice: &fill, Targets: []float64{106}},
		{ID: "vo_1", Symbol: "BTCUSDT", TF: "M15", Side: models.SideSell, State: models.OrderPlanned, Targets: []float64{96}},
	}
}

func TestFileOrderStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileOrderStore(t.TempDir())
	require.NoError(t, err)

	empty, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	require.NoError(t, s.Save(ctx, btcM15, sampleOrders()))
	require.NoError(t, s.Save(ctx, domrepo.Partition{Symbol: "ETHUSDT", Timeframe: "H1"}, nil))

	got, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "vo_2", got[0].ID)
	require.NotNil(t, got[0].EntryFillPrice)
	assert.Equal(t, 101.0, *got[0].EntryFillPrice)
	assert.Nil(t, got[1].EntryFillPrice)

	parts, err := s.Partitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domrepo.Partition{btcM15, {Symbol: "ETHUSDT", Timeframe: "H1"}}, parts)
}

func TestFileOrderStoreRejectsPathTricks(t *testing.T) {
	s, err := NewFileOrderStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Load(context.Background(), domrepo.Partition{Symbol: "../etc", Timeframe: "M15"})
	assert.Error(t, err)
}

func TestMemoryOrderStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()
	orders := sampleOrders()
	require.NoError(t, s.Save(ctx, btcM15, orders))

	orders[0].ID = "mutated"
	got, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Equal(t, "vo_2", got[0].ID)
}

type flakyStore struct {
	*MemoryOrderStore
	fail       bool
	failWrites bool
}

var errDown = errors.New("disk unavailable")

func (f *flakyStore) Load(ctx context.Context, p domrepo.Partition) ([]models.VirtualOrder, error) {
	if f.fail {
		return nil, errDown
	}
	return f.MemoryOrderStore.Load(ctx, p)
}

func (f *flakyStore) Save(ctx context.Context, p domrepo.Partition, o []models.VirtualOrder) error {
	if f.fail || f.failWrites {
		return errDown
	}
	return f.MemoryOrderStore.Save(ctx, p, o)
}

func (f *flakyStore) Partitions(ctx context.Context) ([]domrepo.Partition, error) {
	if f.fail {
		return nil, errDown
	}
	return f.MemoryOrderStore.Partitions(ctx)
}

type fallbackCounter struct {
	nopMetrics
	ops []string
}

func (m *fallbackCounter) RecordStoreFallback(op string) { m.ops = append(m.ops, op) }

func TestTieredOrderStoreFallsBackToSnapshot(t *testing.T) {
	ctx := context.Background()
	durable := &flakyStore{MemoryOrderStore: NewMemoryOrderStore()}
	snap := cache.NewMemoryCache(cache.WithMemoryDefaultTTL(time.Hour))
	defer snap.Close()
	m := &fallbackCounter{}
	s := NewTieredOrderStore(durable, snap, m, nil)

	require.NoError(t, s.Save(ctx, btcM15, sampleOrders()))

	durable.fail = true
	got, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// A failed durable write still updates the snapshot.
	updated := sampleOrders()[:1]
	require.NoError(t, s.Save(ctx, btcM15, updated))
	got, err = s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	parts, err := s.Partitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domrepo.Partition{btcM15}, parts)
	assert.Equal(t, []string{"load", "save", "load", "partitions"}, m.ops)
}

func TestTieredOrderStoreKeepsOutageWritesAfterRecovery(t *testing.T) {
	ctx := context.Background()
	durable := &flakyStore{MemoryOrderStore: NewMemoryOrderStore()}
	snap := cache.NewMemoryCache(cache.WithMemoryDefaultTTL(time.Hour))
	defer snap.Close()
	s := NewTieredOrderStore(durable, snap, nil, nil)

	planned := []models.VirtualOrder{{ID: "vo_1", Symbol: "BTCUSDT", TF: "M15", Side: models.SideBuy, State: models.OrderPlanned, Targets: []float64{106}}}
	require.NoError(t, s.Save(ctx, btcM15, planned))

	durable.fail = true
	fill := 101.0
	opened := []models.VirtualOrder{planned[0]}
	opened[0].State = models.OrderOpen
	opened[0].EntryFillPrice = &fill
	require.NoError(t, s.Save(ctx, btcM15, opened))

	durable.fail = false
	got, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.OrderOpen, got[0].State)

	// The recovered durable tier now holds the outage write.
	stored, err := durable.MemoryOrderStore.Load(ctx, btcM15)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.OrderOpen, stored[0].State)

	got, err = s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Equal(t, models.OrderOpen, got[0].State)
}

func TestTieredOrderStoreServesSnapshotWhileWritesFail(t *testing.T) {
	ctx := context.Background()
	durable := &flakyStore{MemoryOrderStore: NewMemoryOrderStore()}
	snap := cache.NewMemoryCache(cache.WithMemoryDefaultTTL(time.Hour))
	defer snap.Close()
	m := &fallbackCounter{}
	s := NewTieredOrderStore(durable, snap, m, nil)

	orders := sampleOrders()
	require.NoError(t, s.Save(ctx, btcM15, orders[:1]))

	durable.failWrites = true
	require.NoError(t, s.Save(ctx, btcM15, orders))

	got, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"save", "load"}, m.ops)

	durable.failWrites = false
	got, err = s.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	stored, err := durable.MemoryOrderStore.Load(ctx, btcM15)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestTieredOrderStoreErrorsWithoutSnapshot(t *testing.T) {
	durable := &flakyStore{MemoryOrderStore: NewMemoryOrderStore(), fail: true}
	snap := cache.NewMemoryCache()
	defer snap.Close()
	s := NewTieredOrderStore(durable, snap, nil, nil)

	_, err := s.Load(context.Background(), btcM15)
	assert.ErrorIs(t, err, errDown)
}

type nopMetrics struct{}

func (nopMetrics) RecordAnalysis(string, string, models.Decision)                            {}
func (nopMetrics) RecordTransition(models.OrderState, models.OrderState, models.CloseReason) {}
func (nopMetrics) RecordRejection(string)                                                    {}
func (nopMetrics) RecordStoreFallback(string)                                                {}
func (nopMetrics) RecordError(string)                                                        {}
func (nopMetrics) RecordLastClose(string, float64)                                           {}
func (nopMetrics) RecordLatency(string, float64)                                             {}
