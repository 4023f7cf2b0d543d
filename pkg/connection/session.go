package connection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipsync/clipsync-go/pkg/liveness"
	"github.com/clipsync/clipsync-go/pkg/transport"
)

// session is one channel session: a single transport plus the timers that watch it.
// It is owned by the controller loop.
type session struct {
	id      string
	attempt uint64
	opened  time.Time

	conn   transport.Conn
	cancel context.CancelFunc // aborts the dial

	watchdog *liveness.Watchdog
	auth     *handshake

	// authTimer is also stopped by Disconnect from the caller's goroutine.
	mu        sync.Mutex
	authTimer *time.Timer

	released bool
}

func newSession(attempt uint64, credential string) *session {
	return &session{
		id:      uuid.New().String(),
		attempt: attempt,
		auth:    newHandshake(credential),
	}
}

// stopTimers disarms the watchdog and the auth timer. Safe from any goroutine
// and safe to repeat.
func (s *session) stopTimers() {
	if s.watchdog != nil {
		s.watchdog.Disarm()
	}
	s.stopAuthTimer()
}

// startAuthTimer calls fn once d elapses without an acknowledgment.
func (s *session) startAuthTimer(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authTimer != nil {
		s.authTimer.Stop()
	}
	s.authTimer = time.AfterFunc(d, fn)
}

func (s *session) stopAuthTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authTimer != nil {
		s.authTimer.Stop()
		s.authTimer = nil
	}
}

// release stops the timers, aborts a dial in progress and closes the transport.
func (s *session) release(code int, reason string) {
	if s.released {
		return
	}
	s.released = true
	s.stopTimers()
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close(code, reason)
	}
}
