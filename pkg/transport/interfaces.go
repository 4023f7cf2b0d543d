package transport

import "context"

// Conn is one open push-channel connection. It is owned by exactly one session.
type Conn interface {
	// ReadFrame blocks until the next text frame arrives.
	// A closure by the peer returns a *CloseError.
	ReadFrame() ([]byte, error)

	// WriteFrame sends one text frame.
	WriteFrame(data []byte) error

	// Close sends a close frame with code and reason and releases the connection.
	// Safe to call more than once.
	Close(code int, reason string) error
}

// Dialer opens push-channel connections.
type Dialer interface {
	// Dial opens a connection to url. onKeepalive is called for every
	// transport-level keep-alive (WebSocket ping) received on the connection.
	Dial(ctx context.Context, url string, onKeepalive func()) (Conn, error)
}

// Guard decides whether a connection may be attempted at all.
type Guard interface {
	MayConnect() bool
}
