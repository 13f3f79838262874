package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "SmcDesk/pkg/logger"
)

func TestClosedCandleHandler_Handle(t *testing.T) {
	uc, _, _, _ := newOrdersUC(t, nil)
	m := newRecordingMetrics()
	h := NewClosedCandleHandler("smc.candles.closed", uc, m, applogger.NewNop())
	ctx := context.Background()

	assert.Equal(t, "smc.candles.closed", h.Topic())

	o, err := uc.Create(ctx, createReq())
	require.NoError(t, err)

	msg := []byte(`{"symbol":"BTCUSDT","timeframe":"M15","candle":{"t":` +
		"1740831300000" + `,"o":103,"h":103.5,"l":101.5,"c":102,"v":1}}`)
	require.NoError(t, h.Handle(ctx, msg))

	open, err := uc.List(ctx, "OPEN")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, o.ID, open[0].ID)

	// Redelivery is acknowledged.
	assert.NoError(t, h.Handle(ctx, msg))
}

func TestClosedCandleHandler_RejectsBadPayloads(t *testing.T) {
	uc, _, _, _ := newOrdersUC(t, nil)
	m := newRecordingMetrics()
	h := NewClosedCandleHandler("t", uc, m, applogger.NewNop())

	assert.Error(t, h.Handle(context.Background(), []byte(`{not json`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"symbol":"BTCUSDT","candle":{"t":1}}`)))
	assert.Equal(t, []string{"consumer_unmarshal", "consumer_invalid"}, m.errors)
}
