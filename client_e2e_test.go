package gatewaysdk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainAuthRequest reads and discards frames from the outbox until it finds
// the Auth request, so tests don't have to account for unrelated frames
// (subscribe resends, and so on) queued ahead of it.
func drainAuthRequest(t *testing.T, conn *MemConn, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case frame := <-conn.Outbox:
			env, err := DecodeEnvelope([]byte(frame))
			require.NoError(t, err)
			if env.Type == TypeAuth {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for auth request")
		}
	}
}

// TestClientHeartbeatPingFrequencyMatchesInterval exercises spec scenario 5's
// cadence requirement: Ping frames go out once per heartbeat interval,
// regardless of how often Poll is called in between.
func TestClientHeartbeatPingFrequencyMatchesInterval(t *testing.T) {
	c, conn := connectedTestClient(t, WithHeartbeatConfig(HeartbeatConfig{
		Enabled:                     true,
		Interval:                    60 * time.Millisecond,
		Timeout:                     time.Second,
		MissedPongsBeforeDisconnect: 100,
		AnswerPings:                 true,
	}))

	countPings := func() int {
		n := 0
		for {
			select {
			case frame := <-conn.Outbox:
				env, err := DecodeEnvelope([]byte(frame))
				require.NoError(t, err)
				if env.Type == TypePing {
					n++
				}
			default:
				return n
			}
		}
	}
	countPings() // drain anything queued during connect

	deadline := time.Now().Add(250 * time.Millisecond)
	pollCount := 0
	for time.Now().Before(deadline) {
		require.NoError(t, c.Poll(2*time.Millisecond))
		pollCount++
	}

	pings := countPings()
	assert.Greater(t, pollCount, pings*5, "Poll should run far more often than Ping is sent")
	assert.GreaterOrEqual(t, pings, 2)
	assert.LessOrEqual(t, pings, 6)
}

// TestClientReconnectResendsSubscriptions exercises the full lifecycle: an
// initial connect, two registered subscriptions, a transport loss, and the
// automatic reconnect that follows, verifying both subscriptions are resent
// in the order they were created (spec scenario 4) once the connection is
// re-established.
func TestClientReconnectResendsSubscriptions(t *testing.T) {
	conn := NewMemConn(20)
	c := newTestClient(t, conn,
		WithReconnectConfig(ReconnectConfig{
			Enabled:                true,
			InitialDelay:           10 * time.Millisecond,
			MaxDelay:               10 * time.Millisecond,
			BackoffMultiplier:      1,
			ResubscribeOnReconnect: true,
		}),
	)

	go func() {
		drainAuthRequest(t, conn, 2*time.Second)
		injectAuthReply(t, conn, true, "", &deviceIdentityPayload{DeviceID: "sensor-1"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	_, err := c.Subscribe("a.b", func(string, Envelope) {})
	require.NoError(t, err)
	_, err = c.Subscribe("a.c", func(string, Envelope) {})
	require.NoError(t, err)

	// Drain the two subscribe frames sent while Connected.
	for _, want := range []string{"a.b", "a.c"} {
		select {
		case frame := <-conn.Outbox:
			env, decodeErr := DecodeEnvelope([]byte(frame))
			require.NoError(t, decodeErr)
			assert.Equal(t, TypeSubscribe, env.Type)
			assert.Equal(t, want, env.Subject)
		case <-time.After(time.Second):
			t.Fatal("expected the initial subscribe frame")
		}
	}

	// Simulate transport loss.
	conn.Close(1006, "simulated loss")
	require.NoError(t, c.Poll(50*time.Millisecond))
	assert.Equal(t, StateReconnecting, c.State())

	// Once the backoff delay elapses, Poll should attempt to reconnect.
	go func() {
		drainAuthRequest(t, conn, 2*time.Second)
		injectAuthReply(t, conn, true, "", &deviceIdentityPayload{DeviceID: "sensor-1"})
	}()

	require.Eventually(t, func() bool {
		_ = c.Poll(20 * time.Millisecond)
		return c.State() == StateConnected
	}, 3*time.Second, 10*time.Millisecond)

	// The reconnect should have resent both still-registered subscriptions,
	// in the same "a.b" then "a.c" order they were created.
	for _, want := range []string{"a.b", "a.c"} {
		select {
		case frame := <-conn.Outbox:
			env, decodeErr := DecodeEnvelope([]byte(frame))
			require.NoError(t, decodeErr)
			assert.Equal(t, TypeSubscribe, env.Type)
			assert.Equal(t, want, env.Subject)
		case <-time.After(time.Second):
			t.Fatal("expected subscription to be resent after reconnect")
		}
	}
}
