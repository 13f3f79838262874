package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "SmcDesk/internal/domain/repository"
)

func TestRedisOrderStoreLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisOrderStore(db, "smcdesk")
	ctx := context.Background()

	raw, err := json.Marshal(sampleOrders())
	require.NoError(t, err)
	mock.ExpectGet("smcdesk:orders:BTCUSDT:M15").SetVal(string(raw))
	mock.ExpectGet("smcdesk:orders:ETHUSDT:H1").RedisNil()
	mock.ExpectGet("smcdesk:orders:BTCUSDT:M15").SetErr(errors.New("connection refused"))

	got, err := s.Load(ctx, btcM15)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "vo_2", got[0].ID)

	empty, err := s.Load(ctx, domrepo.Partition{Symbol: "ETHUSDT", Timeframe: "H1"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.Load(ctx, btcM15)
	assert.ErrorContains(t, err, "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisOrderStoreSaveIndexesPartition(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisOrderStore(db, "smcdesk")

	orders := sampleOrders()
	raw, err := json.Marshal(orders)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectSet("smcdesk:orders:BTCUSDT:M15", raw, 0).SetVal("OK")
	mock.ExpectSAdd("smcdesk:orders:partitions", "BTCUSDT|M15").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.Save(context.Background(), btcM15, orders))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisOrderStorePartitions(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisOrderStore(db, "smcdesk")

	mock.ExpectSMembers("smcdesk:orders:partitions").SetVal([]string{"ETHUSDT|H1", "garbage", "BTCUSDT|M15"})

	parts, err := s.Partitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domrepo.Partition{btcM15, {Symbol: "ETHUSDT", Timeframe: "H1"}}, parts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
