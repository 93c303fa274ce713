package gatewaysdk

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, conn *MemConn, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithGatewayURL("wss://gateway.example.com/v1/connect"),
		WithDeviceID("sensor-1"),
		WithAuthToken("tok"),
		WithDialer(NewMemDialer(conn)),
		WithHeartbeatConfig(HeartbeatConfig{Enabled: false}),
		WithAutoReconnect(false),
	}
	return NewClient(append(base, opts...)...)
}

func injectAuthReply(t *testing.T, conn *MemConn, success bool, message string, identity *deviceIdentityPayload) {
	t.Helper()
	payload, err := json.Marshal(authReplyPayload{Success: success, Message: message, Device: identity})
	require.NoError(t, err)

	data, err := EncodeEnvelope(Envelope{Type: TypeAuth, Payload: payload})
	require.NoError(t, err)
	conn.Inject(string(data))
}

func TestClientConnectSuccess(t *testing.T) {
	conn := NewMemConn(10)
	c := newTestClient(t, conn)

	go injectAuthReply(t, conn, true, "", &deviceIdentityPayload{
		DeviceID:             "sensor-1",
		DeviceType:           "sensor",
		AllowedPublishTopics: []string{"telemetry.sensor-1.>"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, StateConnected, c.State())
	assert.True(t, c.IsConnected())

	identity, ok := c.DeviceInfo()
	assert.True(t, ok)
	assert.Equal(t, "sensor-1", identity.DeviceID)
}

func TestClientConnectAuthFailure(t *testing.T) {
	conn := NewMemConn(10)
	c := newTestClient(t, conn)

	go injectAuthReply(t, conn, false, "bad token", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientConnectTimesOutWaitingForAuthReply(t *testing.T) {
	conn := NewMemConn(10)
	c := newTestClient(t, conn, WithAuthTimeout(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthTimeout)
}

func connectedTestClient(t *testing.T, opts ...Option) (*Client, *MemConn) {
	t.Helper()
	conn := NewMemConn(10)
	c := newTestClient(t, conn, opts...)

	go injectAuthReply(t, conn, true, "", &deviceIdentityPayload{
		DeviceID:               "sensor-1",
		AllowedPublishTopics:   []string{"telemetry.sensor-1.>"},
		AllowedSubscribeTopics: []string{"commands.sensor-1.>"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	return c, conn
}

func TestClientPublishEnqueuesAndFlushesOnPoll(t *testing.T) {
	c, conn := connectedTestClient(t)

	require.NoError(t, c.Publish("telemetry.sensor-1.temperature", map[string]float64{"celsius": 21.5}))
	require.NoError(t, c.Poll(50*time.Millisecond))

	select {
	case frame := <-conn.Outbox:
		env, err := DecodeEnvelope([]byte(frame))
		require.NoError(t, err)
		assert.Equal(t, TypePublish, env.Type)
		assert.Equal(t, "telemetry.sensor-1.temperature", env.Subject)
	default:
		t.Fatal("expected a flushed publish frame on the outbox")
	}
}

func TestClientPublishRejectsInvalidSubject(t *testing.T) {
	c, _ := connectedTestClient(t)
	err := c.Publish("bad..subject", map[string]int{"x": 1})
	assert.ErrorIs(t, err, ErrInvalidSubjectArg)
}

func TestClientPublishEnforceLocallyDeniesDisallowedSubject(t *testing.T) {
	c, _ := connectedTestClient(t, WithAuthorization(AuthorizationConfig{EnforceLocally: true}))
	err := c.Publish("telemetry.sensor-2.temperature", map[string]int{"x": 1})
	assert.ErrorIs(t, err, ErrSubjectNotAllowed)
}

func TestClientSubscribeDispatchesMatchingWildcard(t *testing.T) {
	c, conn := connectedTestClient(t)

	received := make(chan string, 1)
	_, err := c.Subscribe("commands.sensor-1.*", func(subject string, env Envelope) {
		received <- subject
	})
	require.NoError(t, err)

	// The subscribe frame itself lands on the outbox; drain it so it
	// doesn't interfere with later assertions.
	select {
	case <-conn.Outbox:
	default:
	}

	data, err := EncodeEnvelope(Envelope{Type: TypeMessage, Subject: "commands.sensor-1.reboot"})
	require.NoError(t, err)
	conn.Inject(string(data))

	require.NoError(t, c.Poll(time.Second))

	select {
	case subject := <-received:
		assert.Equal(t, "commands.sensor-1.reboot", subject)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestClientUnsubscribeUnknownID(t *testing.T) {
	c, _ := connectedTestClient(t)
	err := c.Unsubscribe(SubscriptionID(9999))
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestClientTransportLossTriggersReconnectWhenEnabled(t *testing.T) {
	c, conn := connectedTestClient(t, WithReconnectConfig(ReconnectConfig{
		Enabled:           true,
		InitialDelay:      time.Hour, // never elapses within the test
		MaxDelay:          time.Hour,
		BackoffMultiplier: 2,
	}))

	conn.Close(1006, "simulated loss")
	require.NoError(t, c.Poll(50*time.Millisecond))

	assert.Equal(t, StateReconnecting, c.State())
}

func TestClientTransportLossDisconnectsWhenReconnectDisabled(t *testing.T) {
	c, conn := connectedTestClient(t) // base client has AutoReconnect disabled

	conn.Close(1006, "simulated loss")
	require.NoError(t, c.Poll(50*time.Millisecond))

	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientDisconnectIsIdempotent(t *testing.T) {
	c, _ := connectedTestClient(t)
	c.Disconnect()
	assert.Equal(t, StateClosed, c.State())
	c.Disconnect() // must not panic or hang
	assert.Equal(t, StateClosed, c.State())
}

func TestClientStatsTrackMessages(t *testing.T) {
	c, _ := connectedTestClient(t)
	require.NoError(t, c.Publish("telemetry.sensor-1.x", 1))
	require.NoError(t, c.Poll(50*time.Millisecond))

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.MessagesSent)
}

func TestClientCallbacksFireOnStateChange(t *testing.T) {
	conn := NewMemConn(10)
	c := newTestClient(t, conn)

	var transitions []ConnectionState
	c.OnStateChanged(func(old, new ConnectionState) {
		transitions = append(transitions, new)
	})

	go injectAuthReply(t, conn, true, "", &deviceIdentityPayload{DeviceID: "sensor-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	assert.Contains(t, transitions, StateConnecting)
	assert.Contains(t, transitions, StateAuthenticating)
	assert.Contains(t, transitions, StateConnected)
}
