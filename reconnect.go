package gatewaysdk

import (
	"math/rand"
	"time"
)

// ReconnectPolicy computes capped exponential backoff delays with optional
// jitter. It is not safe for concurrent use; the client engine owns a single
// instance per connection lifecycle.
type ReconnectPolicy struct {
	initialDelay      time.Duration
	maxDelay          time.Duration
	backoffMultiplier float64
	jitterEnabled     bool
	maxJitterFraction float64
	maxAttempts       int

	attemptCount int
	rng          *rand.Rand
}

// NewReconnectPolicy builds a ReconnectPolicy from a ReconnectConfig.
func NewReconnectPolicy(cfg ReconnectConfig) *ReconnectPolicy {
	return &ReconnectPolicy{
		initialDelay:      cfg.InitialDelay,
		maxDelay:          cfg.MaxDelay,
		backoffMultiplier: cfg.BackoffMultiplier,
		jitterEnabled:     cfg.JitterEnabled,
		maxJitterFraction: cfg.MaxJitterFraction,
		maxAttempts:       cfg.MaxAttempts,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextDelay increments the attempt counter and returns the delay to wait
// before the next reconnect attempt. ok is false once MaxAttempts (if
// nonzero) has been exhausted.
func (p *ReconnectPolicy) NextDelay() (delay time.Duration, ok bool) {
	p.attemptCount++

	if p.maxAttempts > 0 && p.attemptCount > p.maxAttempts {
		return 0, false
	}

	delay = p.delayForAttempt(p.attemptCount)

	if p.jitterEnabled {
		delay = p.applyJitter(delay)
	}

	return delay, true
}

func (p *ReconnectPolicy) delayForAttempt(attempt int) time.Duration {
	d := float64(p.initialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.backoffMultiplier
		if d >= float64(p.maxDelay) {
			d = float64(p.maxDelay)
			break
		}
	}
	if d > float64(p.maxDelay) {
		d = float64(p.maxDelay)
	}
	return time.Duration(d)
}

func (p *ReconnectPolicy) applyJitter(d time.Duration) time.Duration {
	if p.maxJitterFraction <= 0 {
		return d
	}

	// Uniform in [1-f, 1+f], clamped to [1ms, maxDelay].
	lo := 1 - p.maxJitterFraction
	hi := 1 + p.maxJitterFraction
	factor := lo + p.rng.Float64()*(hi-lo)

	jittered := time.Duration(float64(d) * factor)
	if jittered < time.Millisecond {
		jittered = time.Millisecond
	}
	if jittered > p.maxDelay {
		jittered = p.maxDelay
	}
	return jittered
}

// AttemptCount returns the number of NextDelay calls made since the last
// Reset.
func (p *ReconnectPolicy) AttemptCount() int {
	return p.attemptCount
}

// Reset zeroes the attempt counter. Called on successful authentication.
func (p *ReconnectPolicy) Reset() {
	p.attemptCount = 0
}
