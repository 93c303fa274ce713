package gatewaysdk

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// PrometheusMetrics is a Metrics implementation backed by
// github.com/prometheus/client_golang. Metric families are created lazily
// per distinct name and registered against the supplied registerer.
type PrometheusMetrics struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance that registers
// its collectors against reg. Pass prometheus.DefaultRegisterer for the
// process-wide default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(labels MetricLabels) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

// Counter returns a counter metric.
func (p *PrometheusMetrics) Counter(name string, labels MetricLabels) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
		p.registerer.MustRegister(vec)
		p.counters[name] = vec
	}
	return &promCounter{c: vec.With(prometheus.Labels(labels))}
}

// Gauge returns a gauge metric.
func (p *PrometheusMetrics) Gauge(name string, labels MetricLabels) Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
		p.registerer.MustRegister(vec)
		p.gauges[name] = vec
	}
	return &promGauge{g: vec.With(prometheus.Labels(labels))}
}

// Histogram returns a histogram metric.
func (p *PrometheusMetrics) Histogram(name string, labels MetricLabels) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labelNames(labels))
		p.registerer.MustRegister(vec)
		p.histograms[name] = vec
	}
	return &promHistogram{h: vec.With(prometheus.Labels(labels))}
}

type promCounter struct {
	c prometheus.Counter
}

func (c *promCounter) Inc()              { c.c.Inc() }
func (c *promCounter) Add(delta float64) { c.c.Add(delta) }
func (c *promCounter) Value() float64 {
	m := &dto.Metric{}
	if err := c.c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

type promGauge struct {
	g prometheus.Gauge
}

func (g *promGauge) Set(v float64)     { g.g.Set(v) }
func (g *promGauge) Inc()              { g.g.Inc() }
func (g *promGauge) Dec()              { g.g.Dec() }
func (g *promGauge) Add(delta float64) { g.g.Add(delta) }
func (g *promGauge) Sub(delta float64) { g.g.Sub(delta) }
func (g *promGauge) Value() float64 {
	m := &dto.Metric{}
	if err := g.g.Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

type promHistogram struct {
	h prometheus.Observer
}

func (h *promHistogram) Observe(v float64)                 { h.h.Observe(v) }
func (h *promHistogram) ObserveDuration(d time.Duration)    { h.h.Observe(d.Seconds()) }

// Count and Sum are not exposed by prometheus.Observer; they exist on the
// Histogram interface for the in-memory test backend. Against a real
// Prometheus registry those values are read via /metrics, not this API, so
// both return zero here.
func (h *promHistogram) Count() uint64 { return 0 }
func (h *promHistogram) Sum() float64  { return 0 }
