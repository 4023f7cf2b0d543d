package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/clipsync/clipsync-go/pkg/connection"
	"github.com/clipsync/clipsync-go/pkg/journal"
	"github.com/clipsync/clipsync-go/pkg/persistence"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

// excerptLength is how much clip content is printed per notification.
const excerptLength = 60

// Watcher prints controller callbacks and records them.
// All handlers run on the controller goroutine.
type Watcher struct {
	Journal  *journal.Store
	State    *persistence.ClientStateStore
	Endpoint Endpoint

	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time

	sessionID func() string
}

// NewWatcher creates a watcher that prints to out.
func NewWatcher(out io.Writer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		out:       out,
		logger:    logger,
		now:       time.Now,
		sessionID: func() string { return "" },
	}
}

// Attach registers the watcher's handlers on c.
func (w *Watcher) Attach(c *connection.Controller) {
	w.sessionID = c.SessionID
	c.OnNewClip(w.OnNewClip)
	c.OnUpdatedClip(w.OnUpdatedClip)
	c.OnDeletedClip(w.OnDeletedClip)
	c.OnClipsCleanedUp(w.OnClipsCleanedUp)
	c.OnStatusChange(w.OnStatusChange)
	c.OnAuthError(w.OnAuthError)
	c.OnTransportError(w.OnTransportError)
	c.OnStateChange(func(oldState, newState connection.State) {
		w.logger.Debug("state change", "from", oldState, "to", newState)
	})
}

// OnNewClip prints and journals a new clip.
func (w *Watcher) OnNewClip(n wire.NewClip) {
	line := fmt.Sprintf("+ %s %q", n.ID, wire.Excerpt(n.Content, excerptLength))
	if len(n.Tags) > 0 {
		line += " [" + strings.Join(n.Tags, ", ") + "]"
	}
	w.notify(line, n)
}

// OnUpdatedClip prints and journals a clip update.
func (w *Watcher) OnUpdatedClip(n wire.UpdatedClip) {
	w.notify("~ "+n.ID, n)
}

// OnDeletedClip prints and journals a clip deletion.
func (w *Watcher) OnDeletedClip(n wire.DeletedClip) {
	w.notify("- "+n.ID, n)
}

// OnClipsCleanedUp prints and journals a bulk removal.
func (w *Watcher) OnClipsCleanedUp(n wire.ClipsCleanedUp) {
	w.notify(fmt.Sprintf("x %d clips cleaned up", n.Count), n)
}

func (w *Watcher) notify(line string, n wire.Notification) {
	w.printf("%s %s\n", w.now().Format("15:04:05"), line)

	sid := w.sessionID()
	if w.Journal != nil {
		if _, err := w.Journal.RecordNotification(sid, n); err != nil {
			w.logger.Warn("journal write failed", "type", n.FrameType(), "error", err)
		}
	}
	w.updateState(func(s *persistence.ClientState) {
		s.LastNotificationAt = w.now()
	})
}

// OnStatusChange prints the caller-visible status and remembers usable endpoints.
func (w *Watcher) OnStatusChange(s connection.Status) {
	w.printf("* %s\n", s)

	if s != connection.StatusConnected {
		return
	}
	sid := w.sessionID()
	w.updateState(func(st *persistence.ClientState) {
		st.Endpoint = w.Endpoint.URL
		st.Instance = w.Endpoint.Instance
		st.LastSessionID = sid
		st.LastConnectedAt = w.now()
		st.AuthRejected = false
	})
}

// OnAuthError reports a rejected credential. The controller does not retry.
func (w *Watcher) OnAuthError(message string) {
	w.printf("! authentication rejected: %s\n", message)
	w.updateState(func(st *persistence.ClientState) {
		st.AuthRejected = true
	})
}

// OnTransportError logs a channel failure. Liveness timeouts are routine.
func (w *Watcher) OnTransportError(err error) {
	if errors.Is(err, connection.ErrLivenessTimeout) {
		w.logger.Info("server went quiet; reconnecting", "error", err)
		return
	}
	w.logger.Warn("push channel error", "error", err)
}

func (w *Watcher) updateState(fn func(*persistence.ClientState)) {
	if w.State == nil {
		return
	}
	if err := w.State.Update(fn); err != nil {
		w.logger.Warn("state write failed", "path", w.State.Path(), "error", err)
	}
}

func (w *Watcher) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}
