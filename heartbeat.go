package gatewaysdk

import (
	"sync"
	"time"
)

// HeartbeatMonitor tracks ping/pong liveness for a single connection. It is
// safe for concurrent use: the client engine's write path records sent
// pings, its read loop records received pongs, and each Poll while
// Connected calls CheckTimeout.
type HeartbeatMonitor struct {
	mu sync.Mutex

	interval    time.Duration
	timeout     time.Duration
	maxMissed   int
	answerPings bool

	lastPingSent     time.Time
	lastPongReceived time.Time
	missedPongs      int
	awaitingPong     bool
}

// NewHeartbeatMonitor builds a HeartbeatMonitor from a HeartbeatConfig.
func NewHeartbeatMonitor(cfg HeartbeatConfig) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxMissed:   cfg.MissedPongsBeforeDisconnect,
		answerPings: cfg.AnswerPings,
		lastPongReceived: time.Now(),
	}
}

// Interval returns the configured ping interval.
func (h *HeartbeatMonitor) Interval() time.Duration {
	return h.interval
}

// LastPingSent returns the time the most recent Ping was sent, or the zero
// Time if none has been sent since the last Reset.
func (h *HeartbeatMonitor) LastPingSent() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastPingSent
}

// AnswerPings reports whether a peer-initiated Ping should be answered with
// a Pong.
func (h *HeartbeatMonitor) AnswerPings() bool {
	return h.answerPings
}

// RecordPingSent marks that a Ping was just sent and a Pong is now awaited.
func (h *HeartbeatMonitor) RecordPingSent(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastPingSent = now
	h.awaitingPong = true
}

// RecordPongReceived clears the pending-pong state and resets the missed
// count.
func (h *HeartbeatMonitor) RecordPongReceived(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastPongReceived = now
	h.missedPongs = 0
	h.awaitingPong = false
}

// CheckTimeout evaluates whether, with a Ping outstanding, more than timeout
// has passed since the last Pong (or since the monitor was created or
// Reset). When it has, the missed-pong count is incremented and the
// pending state is cleared so the next interval tick sends a fresh Ping.
// exceeded reports true once missedPongs has reached MissedPongsBeforeDisconnect.
func (h *HeartbeatMonitor) CheckTimeout(now time.Time) (exceeded bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.awaitingPong {
		return false
	}
	if now.Sub(h.lastPongReceived) <= h.timeout {
		return false
	}

	h.missedPongs++
	h.awaitingPong = false

	return h.missedPongs >= h.maxMissed
}

// MissedPongs returns the current consecutive missed-pong count.
func (h *HeartbeatMonitor) MissedPongs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.missedPongs
}

// Reset clears all liveness state. Called when a fresh connection is
// established.
func (h *HeartbeatMonitor) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.missedPongs = 0
	h.awaitingPong = false
	h.lastPingSent = time.Time{}
	h.lastPongReceived = time.Now()
}
