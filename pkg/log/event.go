package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the channel session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Endpoint is the push-channel URL.
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// Attempt is the controller's reconnect counter when the session was opened.
	Attempt uint64 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session/controller state
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"` // Keep-alive/close
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the WebSocket layer (raw frames).
	LayerTransport Layer = 0
	// LayerWire is the frame encoding layer (decoded JSON).
	LayerWire Layer = 1
	// LayerSession is the connection controller.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates an application frame (auth or notification).
	CategoryMessage Category = 0
	// CategoryControl indicates a control message (keep-alive/close).
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameCapture is the largest frame prefix stored in a FrameEvent.
const MaxFrameCapture = 512

// NewFrameEvent captures data, truncating it to MaxFrameCapture bytes.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameCapture {
		fe.Data = append([]byte(nil), data[:MaxFrameCapture]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// MessageEvent captures a decoded frame at the wire layer.
// Credentials are never recorded.
type MessageEvent struct {
	// Type classifies the frame.
	Type MessageType `cbor:"1,keyasint"`

	// FrameType is the frame's "type" field.
	FrameType string `cbor:"2,keyasint"`

	// ClipID is the clip the notification refers to, if any.
	ClipID string `cbor:"3,keyasint,omitempty"`

	// Count is the number of clips affected by a bulk notification.
	Count *int `cbor:"4,keyasint,omitempty"`

	// Dropped is set when the frame was not delivered to a handler.
	Dropped bool `cbor:"5,keyasint,omitempty"`

	// Detail carries a short human-readable note (auth error text, drop cause).
	Detail string `cbor:"6,keyasint,omitempty"`
}

// MessageType classifies application frames.
type MessageType uint8

const (
	// MessageTypeAuth indicates the client's credential frame.
	MessageTypeAuth MessageType = 0
	// MessageTypeAuthResult indicates an auth_success or auth_error frame.
	MessageTypeAuthResult MessageType = 1
	// MessageTypeNotification indicates one of the clip notifications.
	MessageTypeNotification MessageType = 2
	// MessageTypeUnknown indicates a frame that could not be decoded.
	MessageTypeUnknown MessageType = 3
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeAuth:
		return "AUTH"
	case MessageTypeAuthResult:
		return "AUTH_RESULT"
	case MessageTypeNotification:
		return "NOTIFICATION"
	case MessageTypeUnknown:
		return "UNDECODABLE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures controller and session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (close reason, guard refusal).
	Reason string `cbor:"4,keyasint,omitempty"`

	// Delay is the scheduled backoff, for transitions into backoff.
	Delay *time.Duration `cbor:"5,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityController indicates a connection controller state change.
	StateEntityController StateEntity = 0
	// StateEntityAuth indicates an authentication state change.
	StateEntityAuth StateEntity = 1
	// StateEntityStatus indicates a caller-visible status change.
	StateEntityStatus StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityController:
		return "CONTROLLER"
	case StateEntityAuth:
		return "AUTH"
	case StateEntityStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures transport-level control messages.
type ControlMsgEvent struct {
	// Type of control message.
	Type ControlMsgType `cbor:"1,keyasint"`

	// CloseCode is the WebSocket close code for close messages.
	CloseCode *int `cbor:"2,keyasint,omitempty"`
}

// ControlMsgType indicates the type of control message.
type ControlMsgType uint8

const (
	// ControlMsgKeepalive indicates a server keep-alive (ping frame or text ping).
	ControlMsgKeepalive ControlMsgType = 0
	// ControlMsgClose indicates a close message.
	ControlMsgClose ControlMsgType = 1
)

// String returns the control message type name.
func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgKeepalive:
		return "KEEPALIVE"
	case ControlMsgClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the close code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
