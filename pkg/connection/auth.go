package connection

import (
	"github.com/clipsync/clipsync-go/pkg/transport"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

// AuthState tracks the authentication of one session.
type AuthState uint8

const (
	// AuthNoneRequired means no credential is configured.
	AuthNoneRequired AuthState = iota

	// AuthPending means the auth frame was sent.
	AuthPending

	// AuthConfirmed means the server sent auth_success.
	AuthConfirmed

	// AuthFailed means the server sent auth_error or closed with 4001.
	AuthFailed
)

// String returns the auth state name.
func (a AuthState) String() string {
	switch a {
	case AuthNoneRequired:
		return "none-required"
	case AuthPending:
		return "pending"
	case AuthConfirmed:
		return "confirmed"
	case AuthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// authStep is what an inbound frame means to the handshake.
type authStep uint8

const (
	// authPass means the frame is not an auth result; notifications flow only when confirmed.
	authPass authStep = iota
	authAccepted
	authRejected
)

// handshake runs the client side of the auth exchange for one session.
type handshake struct {
	credential string
	state      AuthState
	message    string // server text from auth_error
}

func newHandshake(credential string) *handshake {
	return &handshake{credential: credential}
}

// begin sends the auth frame. It reports whether the session is usable right away.
func (h *handshake) begin(conn transport.Conn) (bool, error) {
	if h.credential == "" {
		h.state = AuthNoneRequired
		return true, nil
	}
	data, err := wire.EncodeAuth(h.credential)
	if err != nil {
		return false, err
	}
	if err := conn.WriteFrame(data); err != nil {
		return false, err
	}
	h.state = AuthPending
	return false, nil
}

// pending reports whether an acknowledgment is outstanding.
func (h *handshake) pending() bool {
	return h.state == AuthPending
}

// usable reports whether notifications may be dispatched.
func (h *handshake) usable() bool {
	return h.state == AuthNoneRequired || h.state == AuthConfirmed
}

// handle feeds a decoded frame to the handshake.
// Auth results are only meaningful while pending; a late duplicate is ignored.
func (h *handshake) handle(f wire.Frame) authStep {
	if h.state != AuthPending {
		return authPass
	}
	switch v := f.(type) {
	case wire.AuthSuccess:
		h.state = AuthConfirmed
		return authAccepted
	case wire.AuthError:
		h.state = AuthFailed
		h.message = v.Message
		return authRejected
	default:
		return authPass
	}
}

// fail marks the credential as rejected by other means (a 4001 close).
func (h *handshake) fail(message string) {
	h.state = AuthFailed
	if h.message == "" {
		h.message = message
	}
}
