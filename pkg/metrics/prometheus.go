package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SmcDesk/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastClose   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New registers the collectors on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smcdesk_analyses_total",
				Help: "Completed SMC analyses by decision",
			},
			[]string{"symbol", "tf", "decision"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smcdesk_order_transitions_total",
				Help: "Virtual order state transitions",
			},
			[]string{"from", "to", "reason"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smcdesk_order_rejections_total",
				Help: "Virtual order creations rejected by code",
			},
			[]string{"code"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smcdesk_store_fallbacks_total",
				Help: "Order store operations served from the memory snapshot",
			},
			[]string{"op"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smcdesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smcdesk_last_close",
				Help: "Close of the last processed candle per symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smcdesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAnalysis(symbol, tf string, decision models.Decision) {
	r.analyses.WithLabelValues(symbol, tf, string(decision)).Inc()
}

func (r *Recorder) RecordTransition(from, to models.OrderState, reason models.CloseReason) {
	r.transitions.WithLabelValues(string(from), string(to), string(reason)).Inc()
}

func (r *Recorder) RecordRejection(code string) {
	r.rejections.WithLabelValues(code).Inc()
}

func (r *Recorder) RecordStoreFallback(op string) {
	r.fallbacks.WithLabelValues(op).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
