package gatewaysdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatMonitorTimeoutSequence(t *testing.T) {
	h := NewHeartbeatMonitor(HeartbeatConfig{
		Interval:                    time.Second,
		Timeout:                     time.Second,
		MissedPongsBeforeDisconnect: 2,
		AnswerPings:                 true,
	})

	start := time.Now()
	h.RecordPingSent(start)

	// Not yet timed out.
	assert.False(t, h.CheckTimeout(start.Add(500*time.Millisecond)))

	// First timeout: one missed pong, not yet disconnect-worthy.
	assert.False(t, h.CheckTimeout(start.Add(1100*time.Millisecond)))
	assert.Equal(t, 1, h.MissedPongs())

	// A second ping cycle without a pong crosses the disconnect threshold.
	h.RecordPingSent(start.Add(2 * time.Second))
	assert.True(t, h.CheckTimeout(start.Add(3100*time.Millisecond)))
	assert.Equal(t, 2, h.MissedPongs())
}

func TestHeartbeatMonitorPongResetsMissed(t *testing.T) {
	h := NewHeartbeatMonitor(HeartbeatConfig{Interval: time.Second, Timeout: time.Second, MissedPongsBeforeDisconnect: 2})

	now := time.Now()
	h.RecordPingSent(now)
	h.RecordPongReceived(now.Add(100 * time.Millisecond))

	assert.Equal(t, 0, h.MissedPongs())
	assert.False(t, h.CheckTimeout(now.Add(2*time.Second)))
}

func TestHeartbeatMonitorReset(t *testing.T) {
	h := NewHeartbeatMonitor(HeartbeatConfig{Interval: time.Second, Timeout: time.Second, MissedPongsBeforeDisconnect: 1})
	now := time.Now()
	h.RecordPingSent(now)
	h.CheckTimeout(now.Add(2 * time.Second))
	assert.Equal(t, 1, h.MissedPongs())

	h.Reset()
	assert.Equal(t, 0, h.MissedPongs())
}

func TestHeartbeatMonitorAnswerPings(t *testing.T) {
	h := NewHeartbeatMonitor(HeartbeatConfig{AnswerPings: true})
	assert.True(t, h.AnswerPings())

	h2 := NewHeartbeatMonitor(HeartbeatConfig{AnswerPings: false})
	assert.False(t, h2.AnswerPings())
}
