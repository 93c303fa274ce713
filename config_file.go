package gatewaysdk

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors clientOptions in a YAML-friendly shape, so a device
// fleet can be configured from a file instead of Go code.
type fileConfig struct {
	GatewayURL       string `yaml:"gatewayUrl"`
	DeviceID         string `yaml:"deviceId"`
	AuthToken        string `yaml:"authToken"`
	DeviceType       string `yaml:"deviceType"`
	CustomDeviceType string `yaml:"customDeviceType"`

	ConnectTimeoutMS   int64 `yaml:"connectTimeoutMs"`
	AuthTimeoutMS      int64 `yaml:"authTimeoutMs"`
	OperationTimeoutMS int64 `yaml:"operationTimeoutMs"`

	TLS struct {
		Enabled        bool   `yaml:"enabled"`
		VerifyPeer     bool   `yaml:"verifyPeer"`
		CACertPath     string `yaml:"caCertPath"`
		ClientCertPath string `yaml:"clientCertPath"`
		ClientKeyPath  string `yaml:"clientKeyPath"`
		ServerName     string `yaml:"serverName"`
	} `yaml:"tls"`

	Reconnect struct {
		Enabled                bool    `yaml:"enabled"`
		InitialDelayMS         int64   `yaml:"initialDelayMs"`
		MaxDelayMS             int64   `yaml:"maxDelayMs"`
		BackoffMultiplier      float64 `yaml:"backoffMultiplier"`
		JitterEnabled          bool    `yaml:"jitterEnabled"`
		MaxJitterFraction      float64 `yaml:"maxJitterFraction"`
		MaxAttempts            int     `yaml:"maxAttempts"`
		ResubscribeOnReconnect bool    `yaml:"resubscribeOnReconnect"`
	} `yaml:"reconnect"`

	Heartbeat struct {
		Enabled                     bool  `yaml:"enabled"`
		IntervalMS                  int64 `yaml:"intervalMs"`
		TimeoutMS                   int64 `yaml:"timeoutMs"`
		MissedPongsBeforeDisconnect int   `yaml:"missedPongsBeforeDisconnect"`
		AnswerPings                 bool  `yaml:"answerPings"`
	} `yaml:"heartbeat"`

	Buffers struct {
		MaxOutgoingMessages int `yaml:"maxOutgoingMessages"`
		MaxIncomingMessages int `yaml:"maxIncomingMessages"`
		MaxPayloadSize      int `yaml:"maxPayloadSize"`
	} `yaml:"buffers"`

	Authorization struct {
		EnforceLocally bool `yaml:"enforceLocally"`
	} `yaml:"authorization"`

	Logging struct {
		Level      string `yaml:"level"`
		JSON       bool   `yaml:"json"`
		WithCaller bool   `yaml:"withCaller"`
	} `yaml:"logging"`

	Metrics struct {
		Backend string `yaml:"backend"`
	} `yaml:"metrics"`
}

func parseDeviceType(s string) DeviceType {
	switch s {
	case "actuator":
		return DeviceActuator
	case "controller":
		return DeviceController
	case "gateway":
		return DeviceGateway
	case "custom":
		return DeviceCustom
	default:
		return DeviceSensor
	}
}

func parseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "none":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}

// LoadConfigFile parses a YAML configuration document at path and returns
// the equivalent slice of Option values, suitable for passing straight to
// NewClient. Top-level fields and timeouts override the NewClient defaults
// only when present. The tls section is always applied, so an omitted
// verifyPeer is false rather than the default true. The reconnect,
// heartbeat and buffers sections each replace the whole corresponding
// configuration once one of their trigger keys is set (initialDelayMs or
// maxDelayMs; intervalMs or timeoutMs; maxOutgoingMessages or
// maxIncomingMessages); keys omitted inside such a section take zero
// values, not the defaults.
func LoadConfigFile(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gatewaysdk: read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("gatewaysdk: parse config file: %w", err)
	}

	var opts []Option

	if fc.GatewayURL != "" {
		opts = append(opts, WithGatewayURL(fc.GatewayURL))
	}
	if fc.DeviceID != "" {
		opts = append(opts, WithDeviceID(fc.DeviceID))
	}
	if fc.AuthToken != "" {
		opts = append(opts, WithAuthToken(fc.AuthToken))
	}
	if fc.DeviceType != "" {
		if fc.DeviceType == "custom" {
			opts = append(opts, WithCustomDeviceType(fc.CustomDeviceType))
		} else {
			opts = append(opts, WithDeviceType(parseDeviceType(fc.DeviceType)))
		}
	}

	if fc.ConnectTimeoutMS > 0 {
		opts = append(opts, WithConnectTimeout(time.Duration(fc.ConnectTimeoutMS)*time.Millisecond))
	}
	if fc.AuthTimeoutMS > 0 {
		opts = append(opts, WithAuthTimeout(time.Duration(fc.AuthTimeoutMS)*time.Millisecond))
	}
	if fc.OperationTimeoutMS > 0 {
		opts = append(opts, WithOperationTimeout(time.Duration(fc.OperationTimeoutMS)*time.Millisecond))
	}

	opts = append(opts, WithTLS(TLSConfig{
		Enabled:        fc.TLS.Enabled,
		VerifyPeer:     fc.TLS.VerifyPeer,
		CACertPath:     fc.TLS.CACertPath,
		ClientCertPath: fc.TLS.ClientCertPath,
		ClientKeyPath:  fc.TLS.ClientKeyPath,
		ServerName:     fc.TLS.ServerName,
	}))

	if fc.Reconnect.InitialDelayMS > 0 || fc.Reconnect.MaxDelayMS > 0 {
		opts = append(opts, WithReconnectConfig(ReconnectConfig{
			Enabled:                fc.Reconnect.Enabled,
			InitialDelay:           time.Duration(fc.Reconnect.InitialDelayMS) * time.Millisecond,
			MaxDelay:               time.Duration(fc.Reconnect.MaxDelayMS) * time.Millisecond,
			BackoffMultiplier:      fc.Reconnect.BackoffMultiplier,
			JitterEnabled:          fc.Reconnect.JitterEnabled,
			MaxJitterFraction:      fc.Reconnect.MaxJitterFraction,
			MaxAttempts:            fc.Reconnect.MaxAttempts,
			ResubscribeOnReconnect: fc.Reconnect.ResubscribeOnReconnect,
		}))
	}

	if fc.Heartbeat.IntervalMS > 0 || fc.Heartbeat.TimeoutMS > 0 {
		opts = append(opts, WithHeartbeatConfig(HeartbeatConfig{
			Enabled:                     fc.Heartbeat.Enabled,
			Interval:                    time.Duration(fc.Heartbeat.IntervalMS) * time.Millisecond,
			Timeout:                     time.Duration(fc.Heartbeat.TimeoutMS) * time.Millisecond,
			MissedPongsBeforeDisconnect: fc.Heartbeat.MissedPongsBeforeDisconnect,
			AnswerPings:                 fc.Heartbeat.AnswerPings,
		}))
	}

	if fc.Buffers.MaxOutgoingMessages > 0 || fc.Buffers.MaxIncomingMessages > 0 {
		opts = append(opts, WithBuffers(BufferConfig{
			MaxOutgoingMessages: fc.Buffers.MaxOutgoingMessages,
			MaxIncomingMessages: fc.Buffers.MaxIncomingMessages,
			MaxPayloadSize:      fc.Buffers.MaxPayloadSize,
		}))
	}

	opts = append(opts, WithAuthorization(AuthorizationConfig{EnforceLocally: fc.Authorization.EnforceLocally}))

	opts = append(opts, WithLoggingConfig(LoggingConfig{
		Level:      parseLogLevel(fc.Logging.Level),
		JSON:       fc.Logging.JSON,
		WithCaller: fc.Logging.WithCaller,
	}))

	if fc.Metrics.Backend == "prometheus" {
		opts = append(opts, WithMetricsBackend(MetricsBackendPrometheus))
	}

	return opts, nil
}
