package gatewaysdk

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemConn is an in-memory Conn used by tests to drive the client engine
// without a real socket. Frames sent by the client land in Outbox;
// frames queued with Inject become available to Recv. MemConn is safe
// for concurrent use.
type MemConn struct {
	mu       sync.Mutex
	opened   bool
	closed   bool
	closeErr error

	inbox  chan string
	Outbox chan string

	readDeadline  time.Time
	writeDeadline time.Time

	// OpenErr, when set, is returned by Open instead of succeeding.
	OpenErr error
}

// NewMemConn creates an unopened MemConn with the given buffer depth for
// injected and sent frames.
func NewMemConn(buffer int) *MemConn {
	return &MemConn{
		inbox:  make(chan string, buffer),
		Outbox: make(chan string, buffer),
	}
}

// Inject makes text available to the next Recv call.
func (c *MemConn) Inject(text string) {
	c.inbox <- text
}

// Open marks the connection opened, unless OpenErr is set.
func (c *MemConn) Open(ctx context.Context, url string) error {
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.mu.Lock()
	c.opened = true
	c.closed = false
	c.mu.Unlock()
	return nil
}

// Close marks the connection closed; code and reason are ignored.
func (c *MemConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Send pushes text onto Outbox for the test to inspect.
func (c *MemConn) Send(text string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrNotConnected
	}
	select {
	case c.Outbox <- text:
		return nil
	default:
		return errors.New("gatewaysdk: MemConn outbox full")
	}
}

// memTimeoutError satisfies the net-style Timeout() bool interface Poll
// checks for when Recv's deadline has passed.
type memTimeoutError struct{}

func (memTimeoutError) Error() string   { return "gatewaysdk: memconn recv timeout" }
func (memTimeoutError) Timeout() bool   { return true }
func (memTimeoutError) Temporary() bool { return true }

// Recv waits for an injected frame until the current read deadline, if
// any, elapses.
func (c *MemConn) Recv() (string, error) {
	c.mu.Lock()
	closed := c.closed
	deadline := c.readDeadline
	c.mu.Unlock()

	if closed {
		return "", ErrNotConnected
	}

	if deadline.IsZero() {
		text, ok := <-c.inbox
		if !ok {
			return "", ErrNotConnected
		}
		return text, nil
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case text, ok := <-c.inbox:
		if !ok {
			return "", ErrNotConnected
		}
		return text, nil
	case <-timer.C:
		return "", memTimeoutError{}
	}
}

// SetReadDeadline records the deadline checked by Recv.
func (c *MemConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readDeadline = t
	return nil
}

// SetWriteDeadline records the deadline; Send on a MemConn never blocks,
// so it has no effect beyond bookkeeping.
func (c *MemConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeDeadline = t
	return nil
}

// MemDialer is a Dialer that always returns the same pre-built MemConn,
// letting a test hold a reference to it before Connect is called.
type MemDialer struct {
	Conn *MemConn
}

// NewMemDialer wraps conn in a Dialer.
func NewMemDialer(conn *MemConn) *MemDialer {
	return &MemDialer{Conn: conn}
}

// Dial returns the wrapped MemConn.
func (d *MemDialer) Dial() Conn {
	return d.Conn
}
