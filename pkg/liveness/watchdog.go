package liveness

import (
	"sync"
	"time"
)

// Watchdog constants.
const (
	// DefaultKeepaliveInterval is the server's expected keep-alive interval.
	DefaultKeepaliveInterval = 30 * time.Second

	// WindowMultiplier relates the watchdog window to the keep-alive interval.
	WindowMultiplier = 2
)

// WindowFor returns the watchdog window for a server keep-alive interval.
func WindowFor(keepalive time.Duration) time.Duration {
	if keepalive <= 0 {
		keepalive = DefaultKeepaliveInterval
	}
	return WindowMultiplier * keepalive
}

// State represents the watchdog state.
type State uint8

const (
	// StateDisarmed indicates no cycle is running.
	StateDisarmed State = iota

	// StateArmed indicates the deadline is being watched.
	StateArmed

	// StateExpired indicates the last cycle fired.
	StateExpired
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisarmed:
		return "DISARMED"
	case StateArmed:
		return "ARMED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Watchdog is a resettable one-shot timer.
type Watchdog struct {
	mu sync.Mutex

	state   State
	timeout time.Duration

	timer    *time.Timer
	deadline time.Time

	// Bumped on every Arm, Pet and Disarm so a timer that already
	// fired cannot act on a newer cycle.
	gen uint64

	onExpire func()
}

// NewWatchdog creates a disarmed watchdog that calls onExpire when a cycle lapses.
// onExpire runs on its own goroutine and must not block for long.
func NewWatchdog(onExpire func()) *Watchdog {
	return &Watchdog{onExpire: onExpire}
}

// Arm starts a new cycle. An existing cycle is replaced.
func (w *Watchdog) Arm(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.timeout = timeout
	w.state = StateArmed
	w.schedule()
}

// Pet pushes the deadline out by one full timeout. No-op unless armed.
func (w *Watchdog) Pet() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateArmed {
		return
	}
	w.schedule()
}

// Disarm ends the current cycle without firing.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.state == StateArmed {
		w.state = StateDisarmed
	}
	w.deadline = time.Time{}
}

// State returns the current watchdog state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Armed reports whether a cycle is running.
func (w *Watchdog) Armed() bool {
	return w.State() == StateArmed
}

// Deadline returns when the current cycle fires, or zero if not armed.
func (w *Watchdog) Deadline() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deadline
}

// Remaining returns the time left in the current cycle.
func (w *Watchdog) Remaining() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateArmed {
		return 0
	}
	remaining := time.Until(w.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// schedule replaces the running timer. Caller holds mu.
func (w *Watchdog) schedule() {
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
	}
	gen := w.gen
	w.deadline = time.Now().Add(w.timeout)
	w.timer = time.AfterFunc(w.timeout, func() {
		w.expire(gen)
	})
}

// expire is called when a timer lapses.
func (w *Watchdog) expire(gen uint64) {
	w.mu.Lock()

	if gen != w.gen || w.state != StateArmed {
		w.mu.Unlock()
		return
	}
	w.state = StateExpired
	w.timer = nil
	w.deadline = time.Time{}
	fn := w.onExpire

	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}
