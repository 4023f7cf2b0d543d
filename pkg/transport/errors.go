package transport

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")

// Error wraps a failure of a transport operation.
type Error struct {
	Op  string // dial, read, write
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CloseError reports a closure announced by the peer.
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("closed by peer (%d)", e.Code)
	}
	return fmt.Sprintf("closed by peer (%d): %s", e.Code, e.Text)
}

// CloseCode returns the peer close code carried by err, if any.
func CloseCode(err error) (int, bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}
