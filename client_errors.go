package gatewaysdk

import (
	"errors"
	"time"
)

// EventHandler is a callback signature for an error-shaped client event.
// The Client's own On* registration methods take plain func values instead.
type EventHandler func(client *Client, event error)

// Sentinel errors for connection lifecycle - check with errors.Is().
var (
	// ErrConnectFailed is returned when the initial connect attempt fails.
	ErrConnectFailed = errors.New("connect failed")

	// ErrConnectTimeout is returned when connectTimeout elapses before the
	// transport reports open.
	ErrConnectTimeout = errors.New("connect timeout")

	// ErrAlreadyConnected is returned from Connect when the client is
	// already connected or connecting.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected is returned when an operation requires an active
	// connection.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionLost is emitted when the connection is lost unexpectedly.
	ErrConnectionLost = errors.New("connection lost")

	// ErrReconnecting is emitted when the client is attempting to reconnect.
	ErrReconnecting = errors.New("reconnecting")

	// ErrReconnectExhausted is emitted when all reconnection attempts have
	// failed.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	// ErrClientClosed is returned when an operation is attempted on a
	// closed client.
	ErrClientClosed = errors.New("client closed")
)

// Sentinel errors for authentication - check with errors.Is().
var (
	// ErrAuthFailed is returned when the gateway rejects the device's
	// credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrAuthTimeout is returned when authTimeout elapses before an Auth
	// reply arrives.
	ErrAuthTimeout = errors.New("authentication timeout")
)

// Sentinel errors for authorization - check with errors.Is(). These fire
// only when AuthorizationConfig.EnforceLocally is set; by default
// authorization is advisory and left to the gateway.
var (
	// ErrSubjectNotAllowed is returned by Publish when the device's granted
	// identity does not permit publishing to the given subject.
	ErrSubjectNotAllowed = errors.New("subject not allowed")

	// ErrSubscribeDenied is returned by Subscribe when the device's granted
	// identity does not permit subscribing to the given pattern.
	ErrSubscribeDenied = errors.New("subscribe denied")
)

// Sentinel errors for protocol issues - check with errors.Is().
var (
	// ErrProtocolViolation is returned when a received frame violates the
	// wire protocol (wrong frame type, unrecognized message type, and so
	// on).
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrPayloadTooLarge is returned when an outgoing payload exceeds
	// BufferConfig.MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrHeartbeatTimeout is emitted when the peer stops answering Pings.
	ErrHeartbeatTimeout = errors.New("heartbeat timeout")
)

// Sentinel errors for operations - check with errors.Is().
var (
	// ErrInvalidSubjectArg is returned when Publish is called with a
	// malformed subject.
	ErrInvalidSubjectArg = errors.New("invalid subject")

	// ErrInvalidPatternArg is returned when Subscribe is called with a
	// malformed pattern.
	ErrInvalidPatternArg = errors.New("invalid pattern")

	// ErrSubscriptionNotFound is returned by Unsubscribe for an unknown
	// SubscriptionID.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrBufferFull is returned when the outgoing queue is at capacity; the
	// newest message is dropped and OverflowCount is incremented.
	ErrBufferFull = errors.New("outgoing buffer full")
)

// ConnectError describes a failed connection attempt.
// Extract with errors.As().
type ConnectError struct {
	err error
	URL string
}

func (e *ConnectError) Error() string { return "connect to " + e.URL + " failed: " + e.err.Error() }
func (e *ConnectError) Unwrap() error { return e.err }

// NewConnectError wraps err (typically ErrConnectFailed or
// ErrConnectTimeout) with the URL that was being dialed.
func NewConnectError(url string, err error) *ConnectError {
	return &ConnectError{err: err, URL: url}
}

// AuthError describes a failed authentication attempt.
// Extract with errors.As().
type AuthError struct {
	err     error
	Reason  string
	DeviceID string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return "authentication failed for " + e.DeviceID + ": " + e.Reason
	}
	return e.err.Error()
}

func (e *AuthError) Unwrap() error { return e.err }

// NewAuthError creates a new AuthError. reason is the gateway-supplied
// failure message, if any.
func NewAuthError(deviceID, reason string) *AuthError {
	return &AuthError{err: ErrAuthFailed, Reason: reason, DeviceID: deviceID}
}

// DisconnectError describes a disconnection, whether initiated locally or
// by the peer. Extract with errors.As().
type DisconnectError struct {
	err    error
	Reason string
	Remote bool
}

func (e *DisconnectError) Error() string {
	if e.Remote {
		return "server disconnect: " + e.Reason
	}
	return "disconnected: " + e.Reason
}

func (e *DisconnectError) Unwrap() error { return e.err }

// NewDisconnectError creates a new DisconnectError.
func NewDisconnectError(reason string, remote bool) *DisconnectError {
	return &DisconnectError{err: ErrConnectionLost, Reason: reason, Remote: remote}
}

// ReconnectEvent describes a single reconnect attempt. Extract with
// errors.As(). OnReconnecting does not receive it; that callback gets only
// the attempt number.
type ReconnectEvent struct {
	err         error
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	cancelFn    func()
}

func (e *ReconnectEvent) Error() string { return e.err.Error() }
func (e *ReconnectEvent) Unwrap() error { return e.err }

// Cancel stops further reconnection attempts for the current connection
// lifecycle.
func (e *ReconnectEvent) Cancel() {
	if e.cancelFn != nil {
		e.cancelFn()
	}
}

// NewReconnectEvent creates a new ReconnectEvent.
func NewReconnectEvent(attempt, maxAttempts int, delay time.Duration, cancelFn func()) *ReconnectEvent {
	return &ReconnectEvent{
		err:         ErrReconnecting,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Delay:       delay,
		cancelFn:    cancelFn,
	}
}

// PublishError describes a failed publish call. Extract with errors.As().
type PublishError struct {
	err     error
	Subject string
}

func (e *PublishError) Error() string { return "publish to " + e.Subject + " failed: " + e.err.Error() }
func (e *PublishError) Unwrap() error { return e.err }

// NewPublishError creates a new PublishError.
func NewPublishError(subject string, err error) *PublishError {
	return &PublishError{err: err, Subject: subject}
}

// SubscribeError describes a failed subscribe or unsubscribe call. Extract
// with errors.As().
type SubscribeError struct {
	err     error
	Pattern string
}

func (e *SubscribeError) Error() string {
	return "subscribe to " + e.Pattern + " failed: " + e.err.Error()
}
func (e *SubscribeError) Unwrap() error { return e.err }

// NewSubscribeError creates a new SubscribeError.
func NewSubscribeError(pattern string, err error) *SubscribeError {
	return &SubscribeError{err: err, Pattern: pattern}
}
