// Package metrics exposes the chatbot's prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	lookups            *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
	searchDegraded     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banking_chatbot_requests_total",
				Help: "Total number of /api/message responses by HTTP status",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "banking_chatbot_request_duration_milliseconds",
				Help:    "Message request duration in milliseconds",
				Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
			},
			[]string{"status"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banking_chatbot_lookups_total",
				Help: "Total number of lookup actions handled",
			},
			[]string{"action"},
		),
		enrichmentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banking_chatbot_enrichment_failures_total",
				Help: "Total number of enrichment calls that failed and were skipped",
			},
			[]string{"stage"},
		),
		searchDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banking_chatbot_search_degraded_total",
				Help: "Total number of document searches answered with an apology",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.lookups, m.enrichmentFailures, m.searchDegraded)
	return m
}

func (m *Metrics) ObserveRequest(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(code).Inc()
	m.requestDuration.WithLabelValues(code).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Lookup(action string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(action).Inc()
}

func (m *Metrics) EnrichmentFailed(stage string) {
	if m == nil {
		return
	}
	m.enrichmentFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) SearchDegraded(reason string) {
	if m == nil {
		return
	}
	m.searchDegraded.WithLabelValues(reason).Inc()
}
