package gatewaysdk

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsCounterAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	c := m.Counter(MetricMessagesSent, MetricLabels{"subject": "telemetry"})
	c.Inc()
	c.Add(4)
	assert.Equal(t, 5.0, c.Value())

	g := m.Gauge(MetricConnections, nil)
	g.Set(2)
	g.Inc()
	g.Sub(1)
	assert.Equal(t, 2.0, g.Value())
}

func TestPrometheusMetricsReusesVecForSameName(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	a := m.Counter(MetricErrors, MetricLabels{"kind": "timeout"})
	b := m.Counter(MetricErrors, MetricLabels{"kind": "auth"})
	a.Inc()
	b.Add(2)

	assert.Equal(t, 1.0, a.Value())
	assert.Equal(t, 2.0, b.Value())
}

func TestPrometheusMetricsHistogramObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	h := m.Histogram(MetricPublishLatency, nil)
	require.NotPanics(t, func() {
		h.Observe(0.5)
		h.ObserveDuration(0)
	})
	assert.Equal(t, uint64(0), h.Count())
	assert.Equal(t, 0.0, h.Sum())
}
