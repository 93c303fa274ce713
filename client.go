package gatewaysdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// protocolVersion is the wire protocol version this client speaks.
const protocolVersion = "1.0"

// clientVersion is the SDK's own version string.
const clientVersion = "0.1.0"

// MessageHandler is defined in subscription_registry.go.

// Client is a connection to a single gateway, for a single device
// identity. A Client is safe for concurrent use: Publish, Subscribe,
// Unsubscribe, Disconnect, Stats, Subscriptions, IsConnected and State may
// all be called from any goroutine. The connection itself (Connect, Poll,
// Run, RunAsync) is driven by a single caller at a time, matching the
// single-threaded cooperative engine described in the package doc.
type Client struct {
	opts *clientOptions

	dialer  Dialer
	logger  Logger
	metrics *ClientMetrics

	authMgr         *AuthManager
	registry        *SubscriptionRegistry
	reconnectPolicy *ReconnectPolicy
	heartbeat       *HeartbeatMonitor

	mu                sync.RWMutex
	state             ConnectionState
	conn              Conn
	stats             ClientStats
	reconnectDeadline time.Time

	outbound chan string

	onConnected    func()
	onDisconnected func(error)
	onReconnecting func(attempt uint32)
	onError        func(error)
	onStateChanged func(old, new ConnectionState)

	closed atomic.Bool

	runCancel context.CancelFunc
	runGroup  *errgroup.Group
}

// NewClient builds a Client from the given options. Validation is deferred
// to Connect, matching the C++ original where a malformed GatewayConfig is
// only rejected when connect() is called.
func NewClient(opts ...Option) *Client {
	o := applyOptions(opts...)

	c := &Client{
		opts:            o,
		dialer:          o.resolveDialer(),
		logger:          o.resolveLogger(),
		metrics:         NewClientMetrics(o.resolveMetrics()),
		authMgr:         NewAuthManager(o.authz.EnforceLocally),
		registry:        NewSubscriptionRegistry(),
		reconnectPolicy: NewReconnectPolicy(o.reconnect),
		heartbeat:       NewHeartbeatMonitor(o.heartbeat),
		state:           StateDisconnected,
		outbound:        make(chan string, o.buffers.MaxOutgoingMessages),
	}

	return c
}

// Validate re-checks the assembled configuration. Connect calls this
// automatically; exposed for callers that want to fail fast before
// attempting a connection.
func (c *Client) Validate() error {
	return c.opts.Validate()
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	old := c.state
	c.state = s
	cb := c.onStateChanged
	c.mu.Unlock()

	if cb != nil && old != s {
		c.safeInvoke(func() { cb(old, s) })
	}
}

// State returns the client's current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is in the Connected state.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// DeviceInfo returns the identity granted by the gateway on the last
// successful authentication. ok is false before the first successful auth.
func (c *Client) DeviceInfo() (DeviceIdentity, bool) {
	return c.authMgr.Identity(), c.authMgr.State() == AuthAuthenticated
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Version returns the SDK version string.
func (c *Client) Version() string { return clientVersion }

// ProtocolVersion returns the wire protocol version this client speaks.
func (c *Client) ProtocolVersion() string { return protocolVersion }

// OnConnected registers a callback fired after a successful (re)connect,
// once subscriptions have been resent.
func (c *Client) OnConnected(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = fn
}

// OnDisconnected registers a callback fired when the client reaches a
// terminal disconnected state (no further automatic reconnect pending).
func (c *Client) OnDisconnected(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnected = fn
}

// OnReconnecting registers a callback fired before each reconnect attempt.
func (c *Client) OnReconnecting(fn func(attempt uint32)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnecting = fn
}

// OnError registers a callback fired for asynchronous errors: decode
// failures, gateway-reported Error envelopes, and failed reconnect
// attempts. Recovered handler panics are logged, not passed to OnError.
func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// OnStateChanged registers a callback fired on every state transition.
func (c *Client) OnStateChanged(fn func(old, new ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChanged = fn
}

func (c *Client) fireError(err error) {
	c.mu.Lock()
	c.stats.ErrorCount++
	cb := c.onError
	c.mu.Unlock()

	c.metrics.ErrorOccurred()
	if cb != nil {
		c.safeInvoke(func() { cb(err) })
	}
}

// safeInvoke runs fn with a recover() boundary so a panicking user callback
// cannot take down the engine.
func (c *Client) safeInvoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered panic in user callback", LogFields{LogFieldError: fmt.Sprintf("%v", r)})
		}
	}()
	fn()
}

// Connect opens the transport, authenticates, and blocks until Connected
// or until ctx (bounded additionally by connectTimeout/authTimeout) is
// exhausted.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.opts.Validate(); err != nil {
		return err
	}

	switch c.State() {
	case StateConnecting, StateAuthenticating, StateConnected, StateReconnecting:
		return ErrAlreadyConnected
	}

	c.closed.Store(false)
	return c.connectOnce(ctx)
}

func (c *Client) connectOnce(ctx context.Context) error {
	c.setState(StateConnecting)

	conn := c.dialer.Dial()

	connectCtx, cancel := context.WithTimeout(ctx, c.opts.connectTimeout)
	defer cancel()

	if err := conn.Open(connectCtx, c.opts.gatewayURL); err != nil {
		c.setState(StateDisconnected)
		cause := ErrConnectFailed
		if errors.Is(connectCtx.Err(), context.DeadlineExceeded) {
			cause = ErrConnectTimeout
		}
		return NewConnectError(c.opts.gatewayURL, fmt.Errorf("%w: %v", cause, err))
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateAuthenticating)
	c.authMgr.BeginAuthenticating()

	if err := c.sendAuthRequest(conn); err != nil {
		c.setState(StateDisconnected)
		return NewConnectError(c.opts.gatewayURL, err)
	}

	identity, err := c.awaitAuthReply(conn, c.opts.authTimeout)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	if c.closed.Load() {
		// an explicit Disconnect raced us while authenticating; it wins.
		_ = conn.Close(1000, "client disconnect")
		return ErrClientClosed
	}

	c.authMgr.Succeed(identity)
	c.reconnectPolicy.Reset()
	c.heartbeat.Reset()

	c.mu.Lock()
	c.stats.ConnectedAt = time.Now().UTC()
	c.mu.Unlock()

	c.setState(StateConnected)
	c.metrics.ConnectionOpened()

	if c.opts.reconnect.ResubscribeOnReconnect {
		c.resendSubscriptions(conn)
	}

	c.mu.RLock()
	cb := c.onConnected
	c.mu.RUnlock()
	if cb != nil {
		c.safeInvoke(cb)
	}

	return nil
}

func (c *Client) sendAuthRequest(conn Conn) error {
	payload, _ := json.Marshal(map[string]any{
		"deviceId":   c.opts.deviceID,
		"token":      c.opts.authToken,
		"deviceType": c.effectiveDeviceType(),
	})

	env := Envelope{
		Type:     TypeAuth,
		Payload:  payload,
		DeviceID: c.opts.deviceID,
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.opts.operationTimeout)); err != nil {
		return err
	}
	return conn.Send(string(data))
}

func (c *Client) effectiveDeviceType() string {
	if c.opts.deviceType == DeviceCustom {
		return c.opts.customDeviceType
	}
	return c.opts.deviceType.String()
}

type authReplyPayload struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Device  *deviceIdentityPayload `json:"device"`
}

type deviceIdentityPayload struct {
	DeviceID               string   `json:"deviceId"`
	DeviceType             string   `json:"deviceType"`
	AllowedPublishTopics   []string `json:"allowedPublishTopics"`
	AllowedSubscribeTopics []string `json:"allowedSubscribeTopics"`
}

func (c *Client) awaitAuthReply(conn Conn, timeout time.Duration) (DeviceIdentity, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return DeviceIdentity{}, NewConnectError(c.opts.gatewayURL, ErrAuthTimeout)
		}

		if err := conn.SetReadDeadline(deadline); err != nil {
			return DeviceIdentity{}, err
		}

		text, err := conn.Recv()
		if err != nil {
			if isTimeoutError(err) {
				continue // deadline elapsed this round; outer check reports ErrAuthTimeout once the budget is gone
			}
			return DeviceIdentity{}, NewConnectError(c.opts.gatewayURL, fmt.Errorf("%w: %v", ErrConnectionLost, err))
		}

		env, err := DecodeEnvelope([]byte(text))
		if err != nil {
			continue // malformed frame while authenticating; keep waiting until timeout
		}

		if env.Type != TypeAuth {
			continue // not expected pre-auth; ignore until timeout
		}

		var reply authReplyPayload
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			authErr := NewAuthError(c.opts.deviceID, "malformed auth reply")
			c.authMgr.Fail(authErr)
			return DeviceIdentity{}, authErr
		}

		if !reply.Success {
			authErr := NewAuthError(c.opts.deviceID, reply.Message)
			c.authMgr.Fail(authErr)
			return DeviceIdentity{}, authErr
		}

		identity := DeviceIdentity{DeviceID: c.opts.deviceID}
		if reply.Device != nil {
			identity = DeviceIdentity{
				DeviceID:               reply.Device.DeviceID,
				DeviceType:             reply.Device.DeviceType,
				AllowedPublishTopics:   reply.Device.AllowedPublishTopics,
				AllowedSubscribeTopics: reply.Device.AllowedSubscribeTopics,
			}
		}
		return identity, nil
	}
}

func (c *Client) resendSubscriptions(conn Conn) {
	for _, pattern := range c.registry.Patterns() {
		if err := c.sendSubscribe(conn, pattern); err != nil {
			c.logger.Warn("failed to resend subscription", LogFields{LogFieldSubject: pattern, LogFieldError: err.Error()})
		}
	}
}

func (c *Client) sendSubscribe(conn Conn, pattern string) error {
	env := Envelope{Type: TypeSubscribe, Subject: pattern, DeviceID: c.opts.deviceID}
	data, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.operationTimeout))
	return conn.Send(string(data))
}

func (c *Client) sendUnsubscribe(conn Conn, pattern string) error {
	env := Envelope{Type: TypeUnsubscribe, Subject: pattern, DeviceID: c.opts.deviceID}
	data, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.operationTimeout))
	return conn.Send(string(data))
}

// ConnectAsync runs Connect in a new goroutine and returns a channel that
// receives its result exactly once.
func (c *Client) ConnectAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- c.Connect(ctx) }()
	return ch
}

// Disconnect closes the connection and disables any pending reconnect. It
// is idempotent and synchronous: it returns after the Closing -> Closed
// transition completes.
func (c *Client) Disconnect() {
	state := c.State()
	if state == StateDisconnected || state == StateClosed {
		return
	}

	c.setState(StateClosing)
	c.closed.Store(true)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(1000, "client disconnect")
	}

	c.authMgr.Reset()
	c.metrics.ConnectionClosed()
	c.setState(StateClosed)

	c.mu.RLock()
	cb := c.onDisconnected
	c.mu.RUnlock()
	if cb != nil {
		c.safeInvoke(func() { cb(nil) })
	}
}

// PublishOption configures an individual Publish call.
type PublishOption func(*publishSettings)

type publishSettings struct {
	correlationID string
}

// WithCorrelationID overrides the auto-generated correlation ID for a
// single Publish call.
func WithCorrelationID(id string) PublishOption {
	return func(s *publishSettings) { s.correlationID = id }
}

// Publish sends payload (marshaled to JSON) on subject. Publish is
// fire-and-forget at this layer: success means the frame was handed to the
// outbound queue, not that the gateway has processed it.
func (c *Client) Publish(subject string, payload any, opts ...PublishOption) error {
	if err := ValidateSubject(subject); err != nil {
		return NewPublishError(subject, ErrInvalidSubjectArg)
	}

	if c.opts.authz.EnforceLocally && !c.authMgr.CanPublish(subject) {
		return NewPublishError(subject, ErrSubjectNotAllowed)
	}

	if !c.IsConnected() {
		return NewPublishError(subject, ErrNotConnected)
	}

	settings := &publishSettings{correlationID: uuid.NewString()}
	for _, o := range opts {
		if o != nil {
			o(settings)
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return NewPublishError(subject, err)
	}
	if len(raw) > c.opts.buffers.MaxPayloadSize {
		return NewPublishError(subject, ErrPayloadTooLarge)
	}

	env := Envelope{
		Type:          TypePublish,
		Subject:       subject,
		Payload:       raw,
		CorrelationID: settings.correlationID,
		DeviceID:      c.opts.deviceID,
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		return NewPublishError(subject, err)
	}

	if err := c.enqueueOutbound(string(data)); err != nil {
		return NewPublishError(subject, err)
	}

	c.metrics.MessageSent()
	c.metrics.BytesSent(len(data))
	c.mu.Lock()
	c.stats.MessagesSent++
	c.stats.BytesSent += uint64(len(data))
	c.mu.Unlock()

	return nil
}

func (c *Client) enqueueOutbound(frame string) error {
	select {
	case c.outbound <- frame:
		return nil
	default:
		c.mu.Lock()
		c.stats.OverflowCount++
		c.mu.Unlock()
		return ErrBufferFull
	}
}

// Subscribe registers handler for every message whose subject matches
// pattern. If the client is Connected, a Subscribe frame is sent
// immediately; otherwise the subscription is sent automatically on the
// next successful (re)connect.
func (c *Client) Subscribe(pattern string, handler MessageHandler) (SubscriptionID, error) {
	if err := ValidatePattern(pattern); err != nil {
		return 0, NewSubscribeError(pattern, ErrInvalidPatternArg)
	}

	if c.opts.authz.EnforceLocally && !c.authMgr.CanSubscribe(pattern) {
		return 0, NewSubscribeError(pattern, ErrSubscribeDenied)
	}

	id := c.registry.Add(pattern, handler)
	c.metrics.SubscriptionAdded()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil && c.IsConnected() {
		if err := c.sendSubscribe(conn, pattern); err != nil {
			c.logger.Warn("failed to send subscribe frame", LogFields{LogFieldSubject: pattern, LogFieldError: err.Error()})
		}
	}

	return id, nil
}

// Unsubscribe removes the subscription with the given ID.
func (c *Client) Unsubscribe(id SubscriptionID) error {
	if !c.registry.Remove(id) {
		return ErrSubscriptionNotFound
	}
	c.metrics.SubscriptionRemoved()
	return nil
}

// UnsubscribeSubject removes every subscription registered with the exact
// given pattern string and, if connected, notifies the gateway once.
func (c *Client) UnsubscribeSubject(pattern string) error {
	n := c.registry.RemoveSubject(pattern)
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	for i := 0; i < n; i++ {
		c.metrics.SubscriptionRemoved()
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil && c.IsConnected() {
		_ = c.sendUnsubscribe(conn, pattern)
	}
	return nil
}

// Subscriptions returns a snapshot of every currently registered
// subscription.
func (c *Client) Subscriptions() []SubscriptionInfo {
	return c.registry.Snapshot()
}

// Poll does one bounded unit of engine work: while Connected it waits up
// to timeout for an inbound frame, processes it if one arrives, flushes
// one queued outbound frame, and advances the heartbeat timer; while
// Reconnecting it checks whether the backoff delay has elapsed and, if so,
// attempts the next connection. Poll returns nil even when no work was
// available.
func (c *Client) Poll(timeout time.Duration) error {
	switch c.State() {
	case StateReconnecting:
		return c.pollReconnecting()
	case StateConnected:
		return c.pollConnected(timeout)
	default:
		time.Sleep(timeout)
		return nil
	}
}

func (c *Client) pollConnected(timeout time.Duration) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil
	}

	select {
	case frame := <-c.outbound:
		_ = conn.SetWriteDeadline(time.Now().Add(c.opts.operationTimeout))
		if err := conn.Send(frame); err != nil {
			c.handleTransportLoss(err)
			return nil
		}
	default:
	}

	now := time.Now()
	if c.opts.heartbeat.Enabled {
		c.runHeartbeat(conn, now)
	}

	_ = conn.SetReadDeadline(now.Add(timeout))
	text, err := conn.Recv()
	if err != nil {
		if isTimeoutError(err) {
			return nil
		}
		c.handleTransportLoss(err)
		return nil
	}

	c.handleInboundFrame(conn, text)
	return nil
}

func (c *Client) runHeartbeat(conn Conn, now time.Time) {
	if c.heartbeat.CheckTimeout(now) {
		_ = conn.Close(1001, "Heartbeat timeout")
		c.handleTransportLoss(ErrHeartbeatTimeout)
		return
	}

	if now.Sub(c.heartbeat.LastPingSent()) < c.heartbeat.Interval() {
		return
	}

	env := Envelope{Type: TypePing, DeviceID: c.opts.deviceID}
	data, err := EncodeEnvelope(env)
	if err != nil {
		return
	}

	_ = conn.SetWriteDeadline(now.Add(c.opts.operationTimeout))
	if err := conn.Send(string(data)); err == nil {
		c.heartbeat.RecordPingSent(now)
	}
}

func (c *Client) handleInboundFrame(conn Conn, text string) {
	env, err := DecodeEnvelope([]byte(text))
	if err != nil {
		c.fireError(err)
		return
	}

	c.mu.Lock()
	c.stats.MessagesReceived++
	c.stats.BytesReceived += uint64(len(text))
	c.stats.LastActivityAt = time.Now().UTC()
	c.mu.Unlock()
	c.metrics.MessageReceived()
	c.metrics.BytesReceived(len(text))

	switch env.Type {
	case TypeAuth:
		c.logger.Debug("ignoring stale auth frame", nil)
	case TypeMessage:
		c.safeInvoke(func() { c.registry.Dispatch(env.Subject, env) })
	case TypeAck:
		c.logger.Debug("ack received", LogFields{LogFieldSubject: env.Subject})
	case TypeError:
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(env.Payload, &payload)
		c.fireError(fmt.Errorf("gatewaysdk: gateway error: %s", payload.Message))
	case TypePong:
		c.heartbeat.RecordPongReceived(time.Now())
	case TypePing:
		if c.heartbeat.AnswerPings() {
			pong := Envelope{Type: TypePong, DeviceID: c.opts.deviceID}
			if data, err := EncodeEnvelope(pong); err == nil {
				_ = conn.SetWriteDeadline(time.Now().Add(c.opts.operationTimeout))
				_ = conn.Send(string(data))
			}
		}
	default:
		c.logger.Debug("ignoring unrecognized frame type", LogFields{LogFieldMessageType: env.Type.String()})
	}
}

func (c *Client) handleTransportLoss(cause error) {
	if c.closed.Load() {
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close(1006, "transport loss")
	}
	c.authMgr.Reset()
	c.metrics.ConnectionClosed()

	if !c.opts.reconnect.Enabled {
		c.setState(StateDisconnected)
		c.fireDisconnected(cause)
		return
	}

	delay, ok := c.reconnectPolicy.NextDelay()
	if !ok {
		c.setState(StateDisconnected)
		c.fireDisconnected(fmt.Errorf("%w: %v", ErrReconnectExhausted, cause))
		return
	}

	c.setState(StateReconnecting)
	c.metrics.ReconnectAttempted()

	c.mu.Lock()
	c.stats.ReconnectCount++
	c.reconnectDeadline = time.Now().Add(delay)
	c.mu.Unlock()

	attempt := c.reconnectPolicy.AttemptCount()

	c.mu.RLock()
	cb := c.onReconnecting
	c.mu.RUnlock()
	if cb != nil {
		c.safeInvoke(func() { cb(uint32(attempt)) })
	}
}

func (c *Client) fireDisconnected(err error) {
	c.mu.RLock()
	cb := c.onDisconnected
	c.mu.RUnlock()
	if cb != nil {
		c.safeInvoke(func() { cb(err) })
	}
}

func (c *Client) pollReconnecting() error {
	c.mu.RLock()
	deadline := c.reconnectDeadline
	c.mu.RUnlock()

	if time.Now().Before(deadline) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.connectTimeout+c.opts.authTimeout)
	defer cancel()

	if err := c.connectOnce(ctx); err != nil {
		if c.closed.Load() {
			return nil
		}
		c.fireError(err)
		if errors.Is(err, ErrAuthFailed) {
			// authentication failures are terminal: no further reconnect.
			c.fireDisconnected(err)
			return nil
		}
		c.handleTransportLoss(err)
	}
	return nil
}

func isTimeoutError(err error) bool {
	type timeoutErr interface{ Timeout() bool }
	te, ok := err.(timeoutErr)
	return ok && te.Timeout()
}

// Run drives the engine by calling Poll in a loop until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	const tick = 100 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Poll(tick); err != nil {
			return err
		}
	}
}

// RunAsync starts Run in a supervised background goroutine. Stop cancels
// it. Calling RunAsync a second time before Stop is a no-op.
func (c *Client) RunAsync(ctx context.Context) {
	if c.runCancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel

	g, gctx := errgroup.WithContext(runCtx)
	c.runGroup = g
	g.Go(func() error {
		return c.Run(gctx)
	})
}

// Stop cancels the goroutine started by RunAsync and waits for it to
// return.
func (c *Client) Stop() {
	if c.runCancel == nil {
		return
	}
	c.runCancel()
	if c.runGroup != nil {
		_ = c.runGroup.Wait()
	}
	c.runCancel = nil
	c.runGroup = nil
}
