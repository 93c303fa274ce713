package gatewaysdk

import (
	"context"
	"time"
)

// Conn is the carrier abstraction the client engine drives. Implementations
// must preserve message framing (one Send maps to one Recv on the peer
// side); WebSocket is the reference carrier, but any framed transport
// qualifies.
type Conn interface {
	// Open establishes the connection to url. ctx governs the connect
	// timeout budget.
	Open(ctx context.Context, url string) error

	// Close closes the connection, sending code/reason to the peer when the
	// carrier supports it.
	Close(code int, reason string) error

	// Send writes a single text frame.
	Send(text string) error

	// Recv blocks until the next text frame arrives, the connection is
	// closed, or the read deadline elapses.
	Recv() (text string, err error)

	// SetReadDeadline bounds the next Recv call. A zero time disables the
	// deadline.
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline bounds the next Send call. A zero time disables the
	// deadline.
	SetWriteDeadline(t time.Time) error
}

// Dialer constructs a Conn on demand. The engine asks for a fresh Conn on
// every connect and reconnect attempt.
type Dialer interface {
	Dial() Conn
}
