package gatewaysdk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(&buf, LogLevelWarn)

	l.Debug("should not appear", nil)
	l.Info("should not appear either", nil)
	l.Warn("this one shows", nil)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "this one shows")
}

func TestStdLoggerWithFieldsAccumulates(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(&buf, LogLevelDebug)

	scoped := l.WithFields(LogFields{LogFieldDeviceID: "sensor-1"})
	scoped.Info("hello", LogFields{LogFieldSubject: "telemetry.sensor-1.x"})

	out := buf.String()
	assert.Contains(t, out, "sensor-1")
	assert.Contains(t, out, "telemetry.sensor-1.x")
}

func TestStdLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(&buf, LogLevelNone)
	l.Error("hidden", nil)
	assert.Empty(t, buf.String())

	l.SetLevel(LogLevelError)
	l.Error("visible", nil)
	assert.True(t, strings.Contains(buf.String(), "visible"))
}

func TestNoOpLoggerDoesNothing(t *testing.T) {
	l := NewNoOpLogger()
	l.Debug("x", nil)
	l.Info("x", nil)
	l.Warn("x", nil)
	l.Error("x", nil)
	assert.Same(t, Logger(l), l.WithFields(LogFields{"a": 1}))
}
