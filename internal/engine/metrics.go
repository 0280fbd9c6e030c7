package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine activity in Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	entries  *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "normativ",
			Name:      "requests_total",
			Help:      "Engine requests by operation and result code.",
		}, []string{"op", "result"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "normativ",
			Name:      "compose_entries_total",
			Help:      "Committed compose entries by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "normativ",
			Name:      "transaction_retries_total",
			Help:      "Transactions retried after a serialization failure or lock contention.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "normativ",
			Name:      "request_duration_seconds",
			Help:      "Engine request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.requests, m.entries, m.retries, m.duration)
	return m
}

func (m *Metrics) observeRequest(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(CodeOf(err))
	}
	m.requests.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) observeReport(r *ComposeReport) {
	if m == nil || r == nil {
		return
	}
	m.entries.WithLabelValues(string(OutcomeCreated)).Add(float64(len(r.Created)))
	m.entries.WithLabelValues(string(OutcomeMerged)).Add(float64(len(r.Merged)))
	m.entries.WithLabelValues(string(OutcomeRejected)).Add(float64(len(r.Rejected)))
}

func (m *Metrics) observeRetry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}
