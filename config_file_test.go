package gatewaysdk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigFileAppliesFields(t *testing.T) {
	path := writeTempConfig(t, `
gatewayUrl: wss://gateway.example.com/v1/connect
deviceId: sensor-42
authToken: s3cr3t
deviceType: actuator
reconnect:
  enabled: true
  initialDelayMs: 500
  maxDelayMs: 5000
  backoffMultiplier: 1.5
heartbeat:
  intervalMs: 15000
  timeoutMs: 3000
  missedPongsBeforeDisconnect: 3
authorization:
  enforceLocally: true
logging:
  level: debug
metrics:
  backend: prometheus
`)

	opts, err := LoadConfigFile(path)
	require.NoError(t, err)

	o := applyOptions(opts...)
	assert.Equal(t, "wss://gateway.example.com/v1/connect", o.gatewayURL)
	assert.Equal(t, "sensor-42", o.deviceID)
	assert.Equal(t, "s3cr3t", o.authToken)
	assert.Equal(t, DeviceActuator, o.deviceType)
	assert.Equal(t, int64(500)*1e6, o.reconnect.InitialDelay.Nanoseconds())
	assert.Equal(t, 1.5, o.reconnect.BackoffMultiplier)
	assert.Equal(t, 3, o.heartbeat.MissedPongsBeforeDisconnect)
	assert.True(t, o.authz.EnforceLocally)
	assert.Equal(t, LogLevelDebug, o.logging.Level)
	assert.Equal(t, MetricsBackendPrometheus, o.metricsBackend)
}

func TestLoadConfigFileMissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFileCustomDeviceType(t *testing.T) {
	path := writeTempConfig(t, `
gatewayUrl: wss://gateway.example.com
deviceId: thing-1
deviceType: custom
customDeviceType: weather-station
`)

	opts, err := LoadConfigFile(path)
	require.NoError(t, err)

	o := applyOptions(opts...)
	assert.Equal(t, DeviceCustom, o.deviceType)
	assert.Equal(t, "weather-station", o.customDeviceType)
}
