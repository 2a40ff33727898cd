// Package metrics exposes Prometheus collectors for ingestion and admin operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Endpoint labels.
const (
	EndpointPageView      = "page_view"
	EndpointWhatsAppClick = "whatsapp_click"
)

// Outcome labels for ingested events.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRateLimited = "rate_limited"
	OutcomeExcluded    = "excluded"
	OutcomeInvalid     = "invalid"
	OutcomeFailed      = "failed"
)

// Metrics holds the collectors registered by the server.
type Metrics struct {
	IngestEventsTotal  *prometheus.CounterVec
	ResetsTotal        *prometheus.CounterVec
	DashboardDuration  prometheus.Histogram
	RateLimitedClients prometheus.GaugeFunc
}

// New creates the collectors and registers them with reg.
// trackedClients reports how many clients the in-memory limiters currently track; nil reports zero.
func New(reg prometheus.Registerer, trackedClients func() int) (*Metrics, error) {
	if trackedClients == nil {
		trackedClients = func() int { return 0 }
	}

	m := &Metrics{
		IngestEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vitrine",
				Subsystem: "ingest",
				Name:      "events_total",
				Help:      "Tracking requests received, by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		ResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vitrine",
				Subsystem: "admin",
				Name:      "resets_total",
				Help:      "Analytics reset requests, by result",
			},
			[]string{"result"},
		),
		DashboardDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vitrine",
				Subsystem: "dashboard",
				Name:      "build_duration_seconds",
				Help:      "Time spent composing the dashboard from the database",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		RateLimitedClients: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "vitrine",
				Subsystem: "ratelimit",
				Name:      "tracked_clients",
				Help:      "Client windows currently held by the in-memory rate limiters",
			},
			func() float64 {
				return float64(trackedClients())
			},
		),
	}

	collectors := []prometheus.Collector{
		m.IngestEventsTotal,
		m.ResetsTotal,
		m.DashboardDuration,
		m.RateLimitedClients,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordIngest counts one tracking request. A nil receiver is a no-op.
func (m *Metrics) RecordIngest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.IngestEventsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordReset counts one reset request.
func (m *Metrics) RecordReset(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ResetsTotal.WithLabelValues(result).Inc()
}

// ObserveDashboard records how long a dashboard build took.
func (m *Metrics) ObserveDashboard(d time.Duration) {
	if m == nil {
		return
	}
	m.DashboardDuration.Observe(d.Seconds())
}
