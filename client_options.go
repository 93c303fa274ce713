package gatewaysdk

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TLSConfig configures transport-layer security for the gateway connection.
type TLSConfig struct {
	Enabled        bool
	VerifyPeer     bool
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
	ServerName     string
}

// ReconnectConfig configures the reconnect backoff policy (§4.3).
type ReconnectConfig struct {
	Enabled                bool
	InitialDelay           time.Duration
	MaxDelay               time.Duration
	BackoffMultiplier      float64
	JitterEnabled          bool
	MaxJitterFraction      float64
	MaxAttempts            int
	ResubscribeOnReconnect bool
}

// HeartbeatConfig configures ping/pong liveness checking (§4.4).
type HeartbeatConfig struct {
	Enabled                     bool
	Interval                    time.Duration
	Timeout                     time.Duration
	MissedPongsBeforeDisconnect int
	AnswerPings                 bool
}

// BufferConfig bounds the client's outgoing/incoming queues and payload
// size.
type BufferConfig struct {
	MaxOutgoingMessages int
	MaxIncomingMessages int
	MaxPayloadSize      int
}

// AuthorizationConfig controls whether the locally-computed
// canPublish/canSubscribe helpers are advisory (logged) or enforced
// (returned as an error before a send is attempted).
type AuthorizationConfig struct {
	EnforceLocally bool
}

// LoggingConfig configures the default StdLogger's verbosity. Only Level is
// applied; JSON and WithCaller are stored but not read by StdLogger. Callers
// that want zap or another backend should use WithLogger instead.
type LoggingConfig struct {
	Level      LogLevel
	JSON       bool
	WithCaller bool
}

// MetricsBackend selects the Metrics implementation NewClient constructs
// when the caller hasn't supplied one via WithMetrics.
type MetricsBackend int

const (
	MetricsBackendNoop MetricsBackend = iota
	MetricsBackendPrometheus
)

// clientOptions is the fully-assembled configuration for a Client,
// populated by defaultOptions and any Option values passed to NewClient.
type clientOptions struct {
	gatewayURL       string
	deviceID         string
	authToken        string
	deviceType       DeviceType
	customDeviceType string

	connectTimeout   time.Duration
	authTimeout      time.Duration
	operationTimeout time.Duration

	tls TLSConfig

	reconnect ReconnectConfig
	heartbeat HeartbeatConfig
	buffers   BufferConfig
	authz     AuthorizationConfig
	logging   LoggingConfig

	metricsBackend MetricsBackend
	metrics        Metrics
	logger         Logger

	dialer Dialer
}

// Option configures a Client at construction time.
type Option func(*clientOptions)

// defaultOptions returns options matching the defaults documented in §6.
func defaultOptions() *clientOptions {
	return &clientOptions{
		deviceType:       DeviceSensor,
		connectTimeout:   10 * time.Second,
		authTimeout:      30 * time.Second,
		operationTimeout: 5 * time.Second,
		tls: TLSConfig{
			VerifyPeer: true,
		},
		reconnect: ReconnectConfig{
			Enabled:                true,
			InitialDelay:           time.Second,
			MaxDelay:               30 * time.Second,
			BackoffMultiplier:      2.0,
			JitterEnabled:          true,
			MaxJitterFraction:      0.25,
			MaxAttempts:            0,
			ResubscribeOnReconnect: true,
		},
		heartbeat: HeartbeatConfig{
			Enabled:                     true,
			Interval:                    30 * time.Second,
			Timeout:                     10 * time.Second,
			MissedPongsBeforeDisconnect: 2,
			AnswerPings:                 true,
		},
		buffers: BufferConfig{
			MaxOutgoingMessages: 1000,
			MaxIncomingMessages: 1000,
			MaxPayloadSize:      1048576,
		},
		authz:          AuthorizationConfig{EnforceLocally: false},
		logging:        LoggingConfig{Level: LogLevelInfo},
		metricsBackend: MetricsBackendNoop,
	}
}

// applyOptions applies all options to the default options.
func applyOptions(opts ...Option) *clientOptions {
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

// Validate checks the required-field and length constraints the C++
// original's GatewayConfig.isValid() checked inline.
func (o *clientOptions) Validate() error {
	if o.gatewayURL == "" {
		return fmt.Errorf("gatewaysdk: gatewayUrl is required")
	}
	if o.deviceID == "" {
		return fmt.Errorf("gatewaysdk: deviceId is required")
	}
	if len(o.deviceID) > MaxSubjectLength {
		return fmt.Errorf("gatewaysdk: deviceId exceeds %d characters", MaxSubjectLength)
	}
	if o.deviceType == DeviceCustom && o.customDeviceType == "" {
		return fmt.Errorf("gatewaysdk: customDeviceType is required when deviceType is custom")
	}
	if o.reconnect.MaxJitterFraction < 0 || o.reconnect.MaxJitterFraction > 1 {
		return fmt.Errorf("gatewaysdk: reconnect maxJitterFraction must be in [0,1]")
	}
	if o.heartbeat.Enabled && o.heartbeat.MissedPongsBeforeDisconnect < 1 {
		return fmt.Errorf("gatewaysdk: heartbeat missedPongsBeforeDisconnect must be >= 1")
	}
	return nil
}

// WithGatewayURL sets the WebSocket URL (ws:// or wss://) of the gateway.
func WithGatewayURL(url string) Option {
	return func(o *clientOptions) { o.gatewayURL = url }
}

// WithDeviceID sets the device identity presented during auth.
func WithDeviceID(id string) Option {
	return func(o *clientOptions) { o.deviceID = id }
}

// WithAuthToken sets the credential presented during auth.
func WithAuthToken(token string) Option {
	return func(o *clientOptions) { o.authToken = token }
}

// WithDeviceType sets the device category presented during auth.
func WithDeviceType(t DeviceType) Option {
	return func(o *clientOptions) { o.deviceType = t }
}

// WithCustomDeviceType sets the free-form device type used when the device
// category is DeviceCustom.
func WithCustomDeviceType(t string) Option {
	return func(o *clientOptions) {
		o.deviceType = DeviceCustom
		o.customDeviceType = t
	}
}

// WithConnectTimeout bounds how long Connect waits for the transport to
// open before failing with ErrConnectTimeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.connectTimeout = d }
}

// WithAuthTimeout bounds how long Connect waits for an Auth reply after the
// AuthRequest is sent.
func WithAuthTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.authTimeout = d }
}

// WithOperationTimeout sets the write deadline applied to each frame the
// client sends.
func WithOperationTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.operationTimeout = d }
}

// WithTLS replaces the TLS configuration.
func WithTLS(cfg TLSConfig) Option {
	return func(o *clientOptions) { o.tls = cfg }
}

// WithReconnectConfig replaces the reconnect policy configuration.
func WithReconnectConfig(cfg ReconnectConfig) Option {
	return func(o *clientOptions) { o.reconnect = cfg }
}

// WithAutoReconnect toggles automatic reconnect on transport loss.
func WithAutoReconnect(enabled bool) Option {
	return func(o *clientOptions) { o.reconnect.Enabled = enabled }
}

// WithMaxReconnectAttempts caps the number of reconnect attempts per
// connection lifecycle. Zero means unlimited.
func WithMaxReconnectAttempts(n int) Option {
	return func(o *clientOptions) { o.reconnect.MaxAttempts = n }
}

// WithHeartbeatConfig replaces the heartbeat configuration.
func WithHeartbeatConfig(cfg HeartbeatConfig) Option {
	return func(o *clientOptions) { o.heartbeat = cfg }
}

// WithBuffers replaces the buffer sizing configuration.
func WithBuffers(cfg BufferConfig) Option {
	return func(o *clientOptions) { o.buffers = cfg }
}

// WithAuthorization replaces the local authorization enforcement
// configuration.
func WithAuthorization(cfg AuthorizationConfig) Option {
	return func(o *clientOptions) { o.authz = cfg }
}

// WithLoggingConfig replaces the default StdLogger's verbosity
// configuration.
func WithLoggingConfig(cfg LoggingConfig) Option {
	return func(o *clientOptions) { o.logging = cfg }
}

// WithLogger overrides the Logger implementation entirely, bypassing
// LoggingConfig.
func WithLogger(l Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithMetrics overrides the Metrics implementation entirely, bypassing
// MetricsBackend.
func WithMetrics(m Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithMetricsBackend selects which built-in Metrics implementation
// NewClient constructs when WithMetrics isn't used.
func WithMetricsBackend(b MetricsBackend) Option {
	return func(o *clientOptions) { o.metricsBackend = b }
}

// WithDialer overrides the transport Dialer. The default is a *WSDialer
// built from the TLS configuration.
func WithDialer(d Dialer) Option {
	return func(o *clientOptions) { o.dialer = d }
}

func (o *clientOptions) resolveDialer() Dialer {
	if o.dialer != nil {
		return o.dialer
	}

	var tlsConf *tls.Config
	if o.tls.Enabled {
		tlsConf = &tls.Config{
			ServerName:         o.tls.ServerName,
			InsecureSkipVerify: !o.tls.VerifyPeer,
		}
		// Cert load failures are not reported here, since resolveDialer has
		// no error return: the config is left without the custom CA pool or
		// client certificate, and any resulting failure shows up as a
		// handshake error from Open().
		if o.tls.CACertPath != "" {
			if pool, err := loadCACertPool(o.tls.CACertPath); err == nil {
				tlsConf.RootCAs = pool
			}
		}
		if o.tls.ClientCertPath != "" && o.tls.ClientKeyPath != "" {
			if cert, err := tls.LoadX509KeyPair(o.tls.ClientCertPath, o.tls.ClientKeyPath); err == nil {
				tlsConf.Certificates = []tls.Certificate{cert}
			}
		}
	}
	return &WSDialer{TLSConfig: tlsConf}
}

func loadCACertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(pem)
	return pool, nil
}

func (o *clientOptions) resolveLogger() Logger {
	if o.logger != nil {
		return o.logger
	}
	return NewStdLogger(nil, o.logging.Level)
}

func (o *clientOptions) resolveMetrics() Metrics {
	if o.metrics != nil {
		return o.metrics
	}
	if o.metricsBackend == MetricsBackendPrometheus {
		return NewPrometheusMetrics(prometheus.DefaultRegisterer)
	}
	return &NoOpMetrics{}
}
