package gatewaysdk

import (
	"time"
)

// MetricType represents the type of metric.
type MetricType int

const (
	// MetricTypeCounter is a monotonically increasing counter.
	MetricTypeCounter MetricType = 0
	// MetricTypeGauge is a value that can go up and down.
	MetricTypeGauge MetricType = 1
	// MetricTypeHistogram tracks distribution of values.
	MetricTypeHistogram MetricType = 2
)

// String returns the string representation of the metric type.
func (t MetricType) String() string {
	switch t {
	case MetricTypeCounter:
		return "counter"
	case MetricTypeGauge:
		return "gauge"
	case MetricTypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// MetricLabels represents key-value pairs for metric labels.
type MetricLabels map[string]string

// Metrics defines the interface for collecting metrics.
type Metrics interface {
	// Counter returns a counter metric.
	Counter(name string, labels MetricLabels) Counter

	// Gauge returns a gauge metric.
	Gauge(name string, labels MetricLabels) Gauge

	// Histogram returns a histogram metric.
	Histogram(name string, labels MetricLabels) Histogram
}

// Counter is a monotonically increasing counter.
type Counter interface {
	// Inc increments the counter by 1.
	Inc()

	// Add adds the given value to the counter.
	Add(delta float64)

	// Value returns the current value.
	Value() float64
}

// Gauge is a metric that can go up and down.
type Gauge interface {
	// Set sets the gauge to the given value.
	Set(value float64)

	// Inc increments the gauge by 1.
	Inc()

	// Dec decrements the gauge by 1.
	Dec()

	// Add adds the given value to the gauge.
	Add(delta float64)

	// Sub subtracts the given value from the gauge.
	Sub(delta float64)

	// Value returns the current value.
	Value() float64
}

// Histogram tracks the distribution of values.
type Histogram interface {
	// Observe records a value.
	Observe(value float64)

	// ObserveDuration records a duration in seconds.
	ObserveDuration(d time.Duration)

	// Count returns the number of observations.
	Count() uint64

	// Sum returns the sum of all observations.
	Sum() float64
}

// NoOpMetrics is a no-op implementation of Metrics.
type NoOpMetrics struct{}

// Counter returns a no-op counter.
func (n *NoOpMetrics) Counter(_ string, _ MetricLabels) Counter {
	return &noOpCounter{}
}

// Gauge returns a no-op gauge.
func (n *NoOpMetrics) Gauge(_ string, _ MetricLabels) Gauge {
	return &noOpGauge{}
}

// Histogram returns a no-op histogram.
func (n *NoOpMetrics) Histogram(_ string, _ MetricLabels) Histogram {
	return &noOpHistogram{}
}

type noOpCounter struct{}

func (n *noOpCounter) Inc()           {}
func (n *noOpCounter) Add(_ float64)  {}
func (n *noOpCounter) Value() float64 { return 0 }

type noOpGauge struct{}

func (n *noOpGauge) Set(_ float64)  {}
func (n *noOpGauge) Inc()           {}
func (n *noOpGauge) Dec()           {}
func (n *noOpGauge) Add(_ float64)  {}
func (n *noOpGauge) Sub(_ float64)  {}
func (n *noOpGauge) Value() float64 { return 0 }

type noOpHistogram struct{}

func (n *noOpHistogram) Observe(_ float64)            {}
func (n *noOpHistogram) ObserveDuration(_ time.Duration) {}
func (n *noOpHistogram) Count() uint64                { return 0 }
func (n *noOpHistogram) Sum() float64                 { return 0 }

// Standard metric names for the client SDK.
const (
	// MetricConnections is the current number of active connections (0 or 1).
	MetricConnections = "gateway_connections"

	// MetricConnectionsTotal is the total number of successful connections.
	MetricConnectionsTotal = "gateway_connections_total"

	// MetricMessagesReceived is the total number of messages received.
	MetricMessagesReceived = "gateway_messages_received_total"

	// MetricMessagesSent is the total number of messages sent.
	MetricMessagesSent = "gateway_messages_sent_total"

	// MetricBytesReceived is the total bytes received.
	MetricBytesReceived = "gateway_bytes_received_total"

	// MetricBytesSent is the total bytes sent.
	MetricBytesSent = "gateway_bytes_sent_total"

	// MetricSubscriptions is the current number of active subscriptions.
	MetricSubscriptions = "gateway_subscriptions"

	// MetricReconnects is the total number of reconnect attempts.
	MetricReconnects = "gateway_reconnects_total"

	// MetricErrors is the total number of errors surfaced via OnError.
	MetricErrors = "gateway_errors_total"

	// MetricPublishLatency is the publish send-path processing latency.
	MetricPublishLatency = "gateway_publish_latency_seconds"
)

// Standard metric labels.
const (
	// LabelMessageType is the envelope type label.
	LabelMessageType = "message_type"

	// LabelDeviceID is the device ID label.
	LabelDeviceID = "device_id"

	// LabelSubject is the subject label.
	LabelSubject = "subject"
)

// ClientMetrics provides convenience methods for the client's own
// instrumentation, mirroring the teacher's BrokerMetrics wrapper.
type ClientMetrics struct {
	metrics Metrics
}

// NewClientMetrics creates a new ClientMetrics instance.
func NewClientMetrics(m Metrics) *ClientMetrics {
	return &ClientMetrics{metrics: m}
}

// ConnectionOpened records a new connection.
func (c *ClientMetrics) ConnectionOpened() {
	c.metrics.Gauge(MetricConnections, nil).Set(1)
	c.metrics.Counter(MetricConnectionsTotal, nil).Inc()
}

// ConnectionClosed records a closed connection.
func (c *ClientMetrics) ConnectionClosed() {
	c.metrics.Gauge(MetricConnections, nil).Set(0)
}

// MessageReceived records a received message.
func (c *ClientMetrics) MessageReceived() {
	c.metrics.Counter(MetricMessagesReceived, nil).Inc()
}

// MessageSent records a sent message.
func (c *ClientMetrics) MessageSent() {
	c.metrics.Counter(MetricMessagesSent, nil).Inc()
}

// BytesReceived records received bytes.
func (c *ClientMetrics) BytesReceived(n int) {
	c.metrics.Counter(MetricBytesReceived, nil).Add(float64(n))
}

// BytesSent records sent bytes.
func (c *ClientMetrics) BytesSent(n int) {
	c.metrics.Counter(MetricBytesSent, nil).Add(float64(n))
}

// SubscriptionAdded records a new subscription.
func (c *ClientMetrics) SubscriptionAdded() {
	c.metrics.Gauge(MetricSubscriptions, nil).Inc()
}

// SubscriptionRemoved records a removed subscription.
func (c *ClientMetrics) SubscriptionRemoved() {
	c.metrics.Gauge(MetricSubscriptions, nil).Dec()
}

// ReconnectAttempted records a reconnect attempt.
func (c *ClientMetrics) ReconnectAttempted() {
	c.metrics.Counter(MetricReconnects, nil).Inc()
}

// ErrorOccurred records an error being surfaced to the user.
func (c *ClientMetrics) ErrorOccurred() {
	c.metrics.Counter(MetricErrors, nil).Inc()
}

// PublishLatency records publish send-path latency.
func (c *ClientMetrics) PublishLatency(d time.Duration) {
	c.metrics.Histogram(MetricPublishLatency, nil).ObserveDuration(d)
}
