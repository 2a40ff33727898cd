package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/metrics"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, func() int { return 7 })
	require.NoError(t, err)

	assert.Equal(t, float64(7), testutil.ToFloat64(m.RateLimitedClients))

	// Registering a second set on the same registry collides.
	_, err = metrics.New(reg, nil)
	assert.Error(t, err)
}

func TestRecordIngest(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	m.RecordIngest(metrics.EndpointPageView, metrics.OutcomeAccepted)
	m.RecordIngest(metrics.EndpointPageView, metrics.OutcomeAccepted)
	m.RecordIngest(metrics.EndpointWhatsAppClick, metrics.OutcomeRateLimited)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("page_view", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("whatsapp_click", "rate_limited")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("page_view", "failed")))
}

func TestRecordReset(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, nil)
	require.NoError(t, err)

	m.RecordReset(nil)
	m.RecordReset(errors.New("boom"))
	m.ObserveDashboard(20 * time.Millisecond)

	expected := `
# HELP vitrine_admin_resets_total Analytics reset requests, by result
# TYPE vitrine_admin_resets_total counter
vitrine_admin_resets_total{result="error"} 1
vitrine_admin_resets_total{result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vitrine_admin_resets_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DashboardDuration))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.RecordIngest(metrics.EndpointPageView, metrics.OutcomeAccepted)
		m.RecordReset(nil)
		m.ObserveDashboard(time.Second)
	})
}
