package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"SmcDesk/internal/domain/models"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordAnalysis("BTCUSDT", "M15", models.DecisionSell)
	r.RecordAnalysis("BTCUSDT", "M15", models.DecisionSell)
	r.RecordTransition(models.OrderOpen, models.OrderClosed, models.CloseStopLoss)
	r.RecordRejection("ERR_RR")
	r.RecordLastClose("BTCUSDT", 101.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("BTCUSDT", "M15", "SELL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("OPEN", "CLOSED", "SL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("ERR_RR")))
	assert.Equal(t, 101.5, testutil.ToFloat64(r.lastClose.WithLabelValues("BTCUSDT")))
}
