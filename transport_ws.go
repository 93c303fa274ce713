package gatewaysdk

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn is the reference Conn implementation, backed by
// github.com/gorilla/websocket. Envelopes travel as text frames.
type WSConn struct {
	dialer *websocket.Dialer
	header http.Header

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSConn creates an unconnected WSConn. tlsConfig may be nil to use the
// dialer's defaults (plain ws://).
func NewWSConn(tlsConfig *tls.Config) *WSConn {
	return &WSConn{
		dialer: &websocket.Dialer{
			TLSClientConfig: tlsConfig,
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		header: http.Header{},
	}
}

// Open dials url, establishing the WebSocket handshake within ctx's
// deadline.
func (c *WSConn) Open(ctx context.Context, url string) error {
	conn, _, err := c.dialer.DialContext(ctx, url, c.header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	return nil
}

// Close closes the connection, sending a WebSocket close frame carrying
// code and reason when the connection is still live.
func (c *WSConn) Close(code int, reason string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)

	return conn.Close()
}

// Send writes text as a single WebSocket text frame.
func (c *WSConn) Send(text string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Recv blocks for the next text frame. A non-text frame is treated as a
// protocol violation.
func (c *WSConn) Recv() (string, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return "", ErrNotConnected
	}

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	if messageType != websocket.TextMessage {
		return "", ErrProtocolViolation
	}
	return string(data), nil
}

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline on the underlying connection.
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.SetWriteDeadline(t)
}

// WSDialer constructs a fresh WSConn on every Dial call, matching the
// Dialer interface the client engine uses to open and reopen connections.
type WSDialer struct {
	TLSConfig *tls.Config
}

// Dial returns a new, unconnected WSConn.
func (d *WSDialer) Dial() Conn {
	return NewWSConn(d.TLSConfig)
}
