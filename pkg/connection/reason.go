package connection

import (
	"errors"

	"github.com/clipsync/clipsync-go/pkg/transport"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

// CloseReason classifies why a session ended. It drives the retry decision.
type CloseReason uint8

const (
	// ReasonNormal is a caller-initiated (or server-declared 1000) closure.
	ReasonNormal CloseReason = iota

	// ReasonAuthRejected means the credential was refused.
	ReasonAuthRejected

	// ReasonLivenessTimeout means no inbound traffic arrived within the watchdog window.
	ReasonLivenessTimeout

	// ReasonTransportError covers open failures and abrupt drops.
	ReasonTransportError

	// ReasonOther covers everything else.
	ReasonOther
)

// String returns a human-readable reason name.
func (r CloseReason) String() string {
	switch r {
	case ReasonNormal:
		return "normal"
	case ReasonAuthRejected:
		return "auth-rejected"
	case ReasonLivenessTimeout:
		return "liveness-timeout"
	case ReasonTransportError:
		return "transport-error"
	case ReasonOther:
		return "other"
	default:
		return "unknown"
	}
}

// ShouldRetry reports whether a session closed for reason r warrants a reconnect.
// Retrying a rejected credential cannot succeed, and a normal closure was asked for.
func ShouldRetry(r CloseReason) bool {
	switch r {
	case ReasonNormal, ReasonAuthRejected:
		return false
	default:
		return true
	}
}

// ReasonForCode maps a close code received from the peer to a CloseReason.
func ReasonForCode(code int) CloseReason {
	switch {
	case code == wire.CloseNormal:
		return ReasonNormal
	case code == wire.CloseLivenessTimeout:
		return ReasonLivenessTimeout
	case code == wire.CloseAuthRejected:
		return ReasonAuthRejected
	case code == 1001, code == 1006:
		return ReasonTransportError
	default:
		return ReasonOther
	}
}

// CodeForReason returns the close code the client sends when it ends a session itself.
func CodeForReason(r CloseReason) int {
	switch r {
	case ReasonLivenessTimeout:
		return wire.CloseLivenessTimeout
	case ReasonAuthRejected:
		return wire.CloseAuthRejected
	case ReasonNormal:
		return wire.CloseNormal
	default:
		// 4002 is not reserved; the server treats it as an ordinary client close.
		return 4002
	}
}

// ReasonForError classifies a read or dial failure.
func ReasonForError(err error) CloseReason {
	var ce *transport.CloseError
	if errors.As(err, &ce) {
		return ReasonForCode(ce.Code)
	}
	return ReasonTransportError
}
