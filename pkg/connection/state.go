package connection

// State is the controller's position in the session lifecycle.
type State uint8

const (
	// StateIdle means no transport exists and nothing is scheduled.
	StateIdle State = iota

	// StateOpening means a transport has been requested.
	StateOpening

	// StateAuthenticating means the auth frame was sent and no acknowledgment has arrived.
	StateAuthenticating

	// StateUsable means notifications are being dispatched.
	StateUsable

	// StateClosing means the transport is being released and the close reason classified.
	StateClosing

	// StateBackoff means a reconnect is scheduled.
	StateBackoff
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateOpening:
		return "OPENING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateUsable:
		return "USABLE"
	case StateClosing:
		return "CLOSING"
	case StateBackoff:
		return "BACKOFF"
	default:
		return "UNKNOWN"
	}
}

// Status is the coarse connection state reported to callers.
type Status uint8

const (
	// StatusDisconnected means no usable session exists. A reconnect may be pending.
	StatusDisconnected Status = iota

	// StatusConnected means a session is usable.
	StatusConnected

	// StatusUnavailable means the transport guard refused to connect.
	StatusUnavailable
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
