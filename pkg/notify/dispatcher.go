package notify

import (
	"sync"
	"time"

	"github.com/clipsync/clipsync-go/pkg/log"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

// Handlers holds one optional callback per notification variant.
// Nil handlers are no-ops.
type Handlers struct {
	NewClip        func(wire.NewClip)
	UpdatedClip    func(wire.UpdatedClip)
	DeletedClip    func(wire.DeletedClip)
	ClipsCleanedUp func(wire.ClipsCleanedUp)
}

// Result describes what Dispatch did with a frame.
type Result uint8

const (
	// Delivered means exactly one handler was invoked.
	Delivered Result = iota

	// Unhandled means the frame decoded but no handler is registered for it.
	Unhandled

	// Dropped means the frame could not be decoded or is not a notification.
	Dropped
)

// String returns a human-readable result name.
func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case Unhandled:
		return "unhandled"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Dispatcher decodes raw frames and invokes the matching handler.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers Handlers

	// Protocol logging (optional)
	logger    log.Logger
	sessionID string
}

// NewDispatcher creates a dispatcher with no handlers registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// SetHandlers replaces all handlers.
func (d *Dispatcher) SetHandlers(h Handlers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = h
}

// OnNewClip registers the NewClip handler.
func (d *Dispatcher) OnNewClip(fn func(wire.NewClip)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers.NewClip = fn
}

// OnUpdatedClip registers the UpdatedClip handler.
func (d *Dispatcher) OnUpdatedClip(fn func(wire.UpdatedClip)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers.UpdatedClip = fn
}

// OnDeletedClip registers the DeletedClip handler.
func (d *Dispatcher) OnDeletedClip(fn func(wire.DeletedClip)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers.DeletedClip = fn
}

// OnClipsCleanedUp registers the ClipsCleanedUp handler.
func (d *Dispatcher) OnClipsCleanedUp(fn func(wire.ClipsCleanedUp)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers.ClipsCleanedUp = fn
}

// SetLogger sets the protocol logger and the session ID events are tagged with.
func (d *Dispatcher) SetLogger(logger log.Logger, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = logger
	d.sessionID = sessionID
}

// Dispatch decodes raw and delivers it to at most one handler.
func (d *Dispatcher) Dispatch(raw []byte) Result {
	frame, err := wire.Decode(raw)
	if err != nil {
		d.logDrop(raw, err.Error())
		return Dropped
	}
	n, ok := frame.(wire.Notification)
	if !ok {
		d.logDrop(raw, "not a notification: "+string(frame.FrameType()))
		return Dropped
	}
	return d.Deliver(n)
}

// Deliver invokes the handler registered for an already decoded notification.
func (d *Dispatcher) Deliver(n wire.Notification) Result {
	d.mu.RLock()
	h := d.handlers
	d.mu.RUnlock()

	delivered := false
	switch v := n.(type) {
	case wire.NewClip:
		if h.NewClip != nil {
			h.NewClip(v)
			delivered = true
		}
	case wire.UpdatedClip:
		if h.UpdatedClip != nil {
			h.UpdatedClip(v)
			delivered = true
		}
	case wire.DeletedClip:
		if h.DeletedClip != nil {
			h.DeletedClip(v)
			delivered = true
		}
	case wire.ClipsCleanedUp:
		if h.ClipsCleanedUp != nil {
			h.ClipsCleanedUp(v)
			delivered = true
		}
	}

	d.logNotification(n, !delivered)
	if !delivered {
		return Unhandled
	}
	return Delivered
}

// logNotification logs an inbound notification event.
func (d *Dispatcher) logNotification(n wire.Notification, unhandled bool) {
	d.mu.RLock()
	logger, sessionID := d.logger, d.sessionID
	d.mu.RUnlock()
	if logger == nil {
		return
	}

	msg := &log.MessageEvent{
		Type:      log.MessageTypeNotification,
		FrameType: string(n.FrameType()),
		Dropped:   unhandled,
	}
	switch v := n.(type) {
	case wire.NewClip:
		msg.ClipID = v.ID
	case wire.UpdatedClip:
		msg.ClipID = v.ID
	case wire.DeletedClip:
		msg.ClipID = v.ID
	case wire.ClipsCleanedUp:
		count := v.Count
		msg.Count = &count
	}
	if unhandled {
		msg.Detail = "no handler registered"
	}

	logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   msg,
	})
}

// logDrop logs a frame that was discarded before reaching a handler.
func (d *Dispatcher) logDrop(raw []byte, cause string) {
	d.mu.RLock()
	logger, sessionID := d.logger, d.sessionID
	d.mu.RUnlock()
	if logger == nil {
		return
	}

	frameType, _ := wire.PeekType(raw)
	logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(raw),
		Message: &log.MessageEvent{
			Type:      log.MessageTypeUnknown,
			FrameType: string(frameType),
			Dropped:   true,
			Detail:    cause,
		},
	})
}
