package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipsync/clipsync-go/pkg/liveness"
	"github.com/clipsync/clipsync-go/pkg/log"
	"github.com/clipsync/clipsync-go/pkg/notify"
	"github.com/clipsync/clipsync-go/pkg/transport"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

// Controller errors.
var (
	ErrNoURL           = errors.New("connection: no push-channel URL configured")
	ErrNoDialer        = errors.New("connection: no dialer configured")
	ErrClosed          = errors.New("connection: controller closed")
	ErrLivenessTimeout = errors.New("connection: no inbound traffic within liveness window")
	ErrAuthTimeout     = errors.New("connection: no authentication result received")
)

// Controller defaults.
const (
	// DefaultAuthTimeout bounds the wait for auth_success or auth_error.
	DefaultAuthTimeout = 10 * time.Second

	// DefaultDialTimeout bounds a single open attempt.
	DefaultDialTimeout = 30 * time.Second

	// eventQueueSize is the depth of the loop's event channel.
	eventQueueSize = 64
)

// Config configures a Controller.
type Config struct {
	// URL is the push-channel endpoint (wss://...).
	URL string

	// Credential is sent in the auth frame. Empty means no authentication.
	Credential string

	// Dialer opens transports. Required.
	Dialer transport.Dialer

	// Guard is consulted before every open attempt.
	// Nil means a SecureGuard over URL with default TLS settings.
	Guard transport.Guard

	// KeepaliveInterval is how often the server pings. The liveness window is twice this.
	KeepaliveInterval time.Duration

	// AuthTimeout bounds the handshake. Zero means DefaultAuthTimeout; negative disables it.
	AuthTimeout time.Duration

	// DialTimeout bounds one open attempt.
	DialTimeout time.Duration

	// Backoff tunes the reconnect delays. The zero value uses the defaults.
	Backoff BackoffConfig

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger

	// ProtocolLogger receives structured protocol events. Nil disables capture.
	ProtocolLogger log.Logger
}

// Controller drives one push channel through its lifecycle.
//
// All transitions happen on a single goroutine started by NewController.
// Call Close to stop it.
type Controller struct {
	config Config
	guard  transport.Guard
	window time.Duration

	logger     *slog.Logger
	plog       log.Logger
	dispatcher *notify.Dispatcher
	policy     *Policy

	events   chan event
	cmdMu    sync.Mutex
	cmds     []event
	cmdReady chan struct{}

	done     chan struct{}
	loopDone chan struct{}
	wg       sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool

	// epoch is bumped by every Disconnect. active is the epoch of the last
	// applied Connect or ReconnectNow. They differ while a disconnect is pending,
	// and no handler runs in that window.
	epoch  atomic.Uint64
	active atomic.Uint64

	// cbMu serializes handler invocation against Disconnect. Handlers only
	// run on the loop goroutine, whose ID is loopID.
	cbMu   sync.Mutex
	loopID atomic.Uint64

	mu         sync.RWMutex
	state      State
	status     Status
	current    *session
	backoff    *time.Timer
	backoffGen uint64
	retryAt    time.Time

	onTransportError func(error)
	onAuthError      func(string)
	onStatusChange   func(Status)
	onStateChange    func(oldState, newState State)
}

// NewController creates a controller in Idle and starts its event loop.
func NewController(cfg Config) (*Controller, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.Dialer == nil {
		return nil, ErrNoDialer
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = DefaultAuthTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoffConfig()
	}

	guard := cfg.Guard
	if guard == nil {
		guard = transport.NewSecureGuard(cfg.URL, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	plog := cfg.ProtocolLogger
	if plog == nil {
		plog = log.NoopLogger{}
	}

	c := &Controller{
		config:     cfg,
		guard:      guard,
		window:     liveness.WindowFor(cfg.KeepaliveInterval),
		logger:     logger,
		plog:       plog,
		dispatcher: notify.NewDispatcher(),
		policy:     NewPolicy(cfg.Backoff),
		events:     make(chan event, eventQueueSize),
		cmdReady:   make(chan struct{}, 1),
		done:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		state:      StateIdle,
		status:     StatusDisconnected,
	}

	c.wg.Add(1)
	go c.run()

	return c, nil
}

// Connect starts opening a session. It returns at once; progress is reported
// through OnStateChange and OnStatusChange. Connect outside Idle is a no-op.
func (c *Controller) Connect() error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.command(cmdConnect{})
	return nil
}

// Disconnect closes the current session with code 1000 and cancels any
// pending reconnect. The liveness, auth and backoff timers are stopped before
// it returns, and from then on no handler is started until the next Connect.
//
// Called from any other goroutine, Disconnect waits for a running handler to
// return. Called from a handler, it does not wait for that handler. A handler
// must not block on a Disconnect made by another goroutine.
func (c *Controller) Disconnect() {
	// Stop timers before queueing: once the command is in, the loop may
	// already be running the next session.
	c.mu.Lock()
	c.stopBackoffLocked()
	if s := c.current; s != nil {
		s.stopTimers()
	}
	c.mu.Unlock()

	c.command(cmdDisconnect{})

	if goid() != c.loopID.Load() {
		c.cbMu.Lock()
		c.cbMu.Unlock()
	}
}

// ReconnectNow skips any pending backoff and opens a new session immediately.
// A usable or authenticating session is replaced. While Opening it is a no-op.
func (c *Controller) ReconnectNow() error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.command(cmdReconnect{})
	return nil
}

// Close disconnects and stops the event loop. It waits for every goroutine the
// controller started. Close must not be called from a handler.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.Disconnect()
		c.command(cmdClose{})
		<-c.loopDone
		close(c.done)
		c.wg.Wait()
		c.drain()
	})
	return nil
}

// drain closes transports from dials that completed after the loop exited.
func (c *Controller) drain() {
	for {
		select {
		case ev := <-c.events:
			if opened, ok := ev.(evOpened); ok && opened.conn != nil {
				_ = opened.conn.Close(wire.CloseNormal, "client shutdown")
			}
		default:
			return
		}
	}
}

// Status returns the caller-visible connection status.
func (c *Controller) Status() Status {
	if c.superseded() {
		return StatusDisconnected
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID returns the ID of the current session, or "" when there is none.
func (c *Controller) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ""
	}
	return c.current.id
}

// RetryAt returns when the pending reconnect fires, or zero outside Backoff.
func (c *Controller) RetryAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retryAt
}

// Attempts returns the number of reconnects scheduled so far.
func (c *Controller) Attempts() uint64 {
	return c.policy.Attempts()
}

// OnNewClip registers the new_clip handler.
func (c *Controller) OnNewClip(fn func(wire.NewClip)) { c.dispatcher.OnNewClip(fn) }

// OnUpdatedClip registers the updated_clip handler.
func (c *Controller) OnUpdatedClip(fn func(wire.UpdatedClip)) { c.dispatcher.OnUpdatedClip(fn) }

// OnDeletedClip registers the deleted_clip handler.
func (c *Controller) OnDeletedClip(fn func(wire.DeletedClip)) { c.dispatcher.OnDeletedClip(fn) }

// OnClipsCleanedUp registers the clips_cleaned_up handler.
func (c *Controller) OnClipsCleanedUp(fn func(wire.ClipsCleanedUp)) {
	c.dispatcher.OnClipsCleanedUp(fn)
}

// OnTransportError sets a callback for open failures, drops and liveness timeouts.
func (c *Controller) OnTransportError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTransportError = fn
}

// OnAuthError sets a callback for a rejected credential. It receives the server's message.
func (c *Controller) OnAuthError(fn func(message string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthError = fn
}

// OnStatusChange sets a callback for status changes.
func (c *Controller) OnStatusChange(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatusChange = fn
}

// OnStateChange sets a callback for lifecycle transitions.
func (c *Controller) OnStateChange(fn func(oldState, newState State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// command queues a caller command. It never blocks, so handlers may call it.
// Connect and ReconnectNow are stamped with the current epoch and a disconnect
// advances it, under the same lock that orders the queue.
func (c *Controller) command(cmd event) {
	c.cmdMu.Lock()
	switch v := cmd.(type) {
	case cmdConnect:
		v.epoch = c.epoch.Load()
		cmd = v
	case cmdReconnect:
		v.epoch = c.epoch.Load()
		cmd = v
	case cmdDisconnect:
		c.epoch.Add(1)
	}
	c.cmds = append(c.cmds, cmd)
	c.cmdMu.Unlock()

	select {
	case c.cmdReady <- struct{}{}:
	default:
	}
}

// post delivers a session or timer event. It reports false once the controller is closed.
func (c *Controller) post(ev event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// superseded reports whether a Disconnect has not yet been followed by a command.
func (c *Controller) superseded() bool {
	return c.active.Load() != c.epoch.Load()
}

// run is the event loop. Every transition happens here.
func (c *Controller) run() {
	defer c.wg.Done()
	defer close(c.loopDone)

	c.loopID.Store(goid())
	for {
		select {
		case <-c.cmdReady:
			c.cmdMu.Lock()
			cmds := c.cmds
			c.cmds = nil
			c.cmdMu.Unlock()

			for _, cmd := range cmds {
				if c.handleCommand(cmd) {
					return
				}
			}
		case ev := <-c.events:
			c.handleEvent(ev)
		}
	}
}

// handleCommand applies a caller command. It reports true when the loop must exit.
func (c *Controller) handleCommand(cmd event) bool {
	switch cmd := cmd.(type) {
	case cmdConnect:
		if cmd.epoch != c.epoch.Load() {
			return false
		}
		c.active.Store(cmd.epoch)
		if c.State() != StateIdle {
			c.logger.Debug("Connect: already active", "state", c.State())
			return false
		}
		c.open()

	case cmdReconnect:
		if cmd.epoch != c.epoch.Load() {
			return false
		}
		c.active.Store(cmd.epoch)
		c.reconnectNow()

	case cmdDisconnect:
		c.shutdown("client disconnect")

	case cmdClose:
		c.shutdown("client shutdown")
		return true
	}
	return false
}

// handleEvent applies a session or timer event.
func (c *Controller) handleEvent(ev event) {
	if c.superseded() {
		// The pending cmdDisconnect tears everything down.
		if opened, ok := ev.(evOpened); ok && opened.conn != nil {
			_ = opened.conn.Close(wire.CloseNormal, "client disconnect")
		}
		return
	}

	switch ev := ev.(type) {
	case evOpened:
		c.handleOpened(ev)
	case evFrame:
		if s := c.sessionFor(ev.sid); s != nil {
			c.handleFrame(s, ev.data)
		}
	case evKeepalive:
		if s := c.sessionFor(ev.sid); s != nil {
			s.watchdog.Pet()
			c.logControl(s, log.ControlMsgKeepalive, nil)
		}
	case evReadFailed:
		if s := c.sessionFor(ev.sid); s != nil {
			c.handleReadFailed(s, ev.err)
		}
	case evLivenessExpired:
		if s := c.sessionFor(ev.sid); s != nil {
			c.logger.Info("handleEvent: liveness timeout", "sessionID", s.id, "window", c.window)
			c.closeSession(ReasonLivenessTimeout, ErrLivenessTimeout)
		}
	case evAuthTimeout:
		if s := c.sessionFor(ev.sid); s != nil && s.auth.pending() {
			c.logger.Info("handleEvent: auth timeout", "sessionID", s.id, "timeout", c.config.AuthTimeout)
			c.closeSession(ReasonOther, ErrAuthTimeout)
		}
	case evBackoffFired:
		c.handleBackoffFired(ev.gen)
	}
}

// sessionFor returns the current session if its ID is sid.
func (c *Controller) sessionFor(sid string) *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil || c.current.id != sid {
		return nil
	}
	return c.current
}

// open starts a new session, provided the guard allows it.
func (c *Controller) open() {
	c.mu.Lock()
	c.stopBackoffLocked()
	prev := c.current
	c.current = nil
	c.mu.Unlock()

	if prev != nil {
		prev.release(wire.CloseNormal, "superseded")
	}

	if !c.guard.MayConnect() {
		c.logger.Warn("open: transport guard refused connection", "url", c.config.URL)
		c.transition(StateIdle, "transport not verified-secure", nil)
		c.setStatus(StatusUnavailable)
		return
	}

	s := newSession(c.policy.Attempts(), c.config.Credential)
	sid := s.id
	s.watchdog = liveness.NewWatchdog(func() {
		c.post(evLivenessExpired{sid: sid})
	})
	ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
	s.cancel = cancel

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	c.dispatcher.SetLogger(c.plog, sid)
	c.logger.Debug("open: dialing", "sessionID", sid, "url", c.config.URL, "attempt", s.attempt)
	c.transition(StateOpening, "", nil)
	c.setStatus(StatusDisconnected)

	c.wg.Add(1)
	go c.dial(ctx, sid)
}

// dial runs one open attempt and reports the result to the loop.
func (c *Controller) dial(ctx context.Context, sid string) {
	defer c.wg.Done()

	conn, err := c.config.Dialer.Dial(ctx, c.config.URL, func() {
		c.post(evKeepalive{sid: sid})
	})
	if !c.post(evOpened{sid: sid, conn: conn, err: err}) && conn != nil {
		_ = conn.Close(wire.CloseNormal, "client shutdown")
	}
}

// read forwards inbound frames until the transport fails.
func (c *Controller) read(sid string, conn transport.Conn) {
	defer c.wg.Done()

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			c.post(evReadFailed{sid: sid, err: err})
			return
		}
		if !c.post(evFrame{sid: sid, data: data}) {
			return
		}
	}
}

// handleOpened completes Opening: arms the watchdog and starts authentication.
func (c *Controller) handleOpened(ev evOpened) {
	s := c.sessionFor(ev.sid)
	if s == nil {
		if ev.conn != nil {
			_ = ev.conn.Close(wire.CloseNormal, "stale session")
		}
		return
	}
	if ev.err != nil {
		c.logger.Debug("handleOpened: open failed", "sessionID", s.id, "error", ev.err)
		c.closeSession(ReasonForError(ev.err), ev.err)
		return
	}

	s.conn = ev.conn
	s.opened = time.Now()
	s.watchdog.Arm(c.window)

	c.wg.Add(1)
	go c.read(s.id, ev.conn)

	usable, err := s.auth.begin(ev.conn)
	if err != nil {
		c.logger.Debug("handleOpened: sending auth frame failed", "sessionID", s.id, "error", err)
		c.closeSession(ReasonTransportError, err)
		return
	}
	if usable {
		c.becomeUsable(s)
		return
	}

	c.logMessage(s, log.DirectionOut, &log.MessageEvent{
		Type:      log.MessageTypeAuth,
		FrameType: string(wire.TypeAuth),
	})
	c.logAuth(s, AuthNoneRequired, AuthPending, "")
	if c.config.AuthTimeout > 0 {
		sid := s.id
		s.startAuthTimer(c.config.AuthTimeout, func() {
			c.post(evAuthTimeout{sid: sid})
		})
	}
	c.transition(StateAuthenticating, "", nil)
}

// handleFrame processes one inbound frame of the current session.
func (c *Controller) handleFrame(s *session, data []byte) {
	// Any inbound traffic proves the channel alive, even a frame we then drop.
	s.watchdog.Pet()

	t, err := wire.PeekType(data)
	if err == nil && t.IsNotification() {
		if !s.auth.usable() || c.State() != StateUsable {
			c.logger.Debug("handleFrame: dropping notification before auth", "sessionID", s.id, "type", t)
			c.logDropped(s, data, "received before auth_success")
			return
		}
		c.invoke(func() {
			c.dispatcher.Dispatch(data)
		})
		return
	}

	frame, err := wire.Decode(data)
	if err != nil {
		c.logger.Debug("handleFrame: dropping undecodable frame", "sessionID", s.id, "error", err)
		c.logDropped(s, data, err.Error())
		return
	}

	switch f := frame.(type) {
	case wire.Keepalive:
		c.logControl(s, log.ControlMsgKeepalive, nil)
		return
	case wire.AuthSuccess, wire.AuthError:
		switch s.auth.handle(f) {
		case authAccepted:
			s.stopAuthTimer()
			c.logMessage(s, log.DirectionIn, &log.MessageEvent{
				Type:      log.MessageTypeAuthResult,
				FrameType: string(f.FrameType()),
			})
			c.logAuth(s, AuthPending, AuthConfirmed, "")
			c.becomeUsable(s)
		case authRejected:
			s.stopAuthTimer()
			c.logMessage(s, log.DirectionIn, &log.MessageEvent{
				Type:      log.MessageTypeAuthResult,
				FrameType: string(f.FrameType()),
				Detail:    s.auth.message,
			})
			c.rejectAuth(s)
		default:
			c.logger.Debug("handleFrame: ignoring unexpected auth result", "sessionID", s.id, "type", f.FrameType())
		}
	}
}

// handleReadFailed classifies a transport failure or peer close.
func (c *Controller) handleReadFailed(s *session, err error) {
	code, peerClosed := transport.CloseCode(err)
	if peerClosed {
		c.logControl(s, log.ControlMsgClose, &code)
	}

	reason := ReasonForError(err)
	c.logger.Info("handleReadFailed: session ended", "sessionID", s.id, "reason", reason, "error", err)

	switch reason {
	case ReasonAuthRejected:
		var ce *transport.CloseError
		msg := "authentication rejected"
		if errors.As(err, &ce) && ce.Text != "" {
			msg = ce.Text
		}
		s.auth.fail(msg)
		c.rejectAuth(s)
	case ReasonNormal:
		c.closeSession(ReasonNormal, nil)
	default:
		c.closeSession(reason, err)
	}
}

// rejectAuth reports the rejected credential and closes without retry.
func (c *Controller) rejectAuth(s *session) {
	c.logAuth(s, AuthPending, AuthFailed, s.auth.message)
	c.mu.RLock()
	fn := c.onAuthError
	c.mu.RUnlock()
	if fn != nil {
		msg := s.auth.message
		c.invoke(func() { fn(msg) })
	}
	c.closeSession(ReasonAuthRejected, nil)
}

// becomeUsable enters Usable and resets the backoff.
func (c *Controller) becomeUsable(s *session) {
	c.policy.OnUsable()
	c.logger.Info("becomeUsable: session usable", "sessionID", s.id, "auth", s.auth.state)
	c.transition(StateUsable, "", nil)
	c.setStatus(StatusConnected)
}

// closeSession releases the current session and either schedules a
// reconnect or goes idle, depending on reason.
func (c *Controller) closeSession(reason CloseReason, cause error) {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	c.transition(StateClosing, reason.String(), nil)
	if s != nil {
		s.release(CodeForReason(reason), reason.String())
	}
	c.setStatus(StatusDisconnected)

	if cause != nil {
		c.logError(s, cause, reason)
		c.mu.RLock()
		fn := c.onTransportError
		c.mu.RUnlock()
		if fn != nil {
			c.invoke(func() { fn(cause) })
		}
	}

	if !c.policy.ShouldRetry(reason) {
		c.transition(StateIdle, reason.String(), nil)
		return
	}
	c.scheduleBackoff(reason)
}

// scheduleBackoff arms the single backoff timer.
func (c *Controller) scheduleBackoff(reason CloseReason) {
	delay := c.policy.NextDelay()

	c.mu.Lock()
	c.stopBackoffLocked()
	gen := c.backoffGen
	c.retryAt = time.Now().Add(delay)
	c.backoff = time.AfterFunc(delay, func() {
		c.post(evBackoffFired{gen: gen})
	})
	c.mu.Unlock()

	c.logger.Debug("scheduleBackoff: reconnect scheduled", "delay", delay, "reason", reason, "attempt", c.policy.Attempts())
	c.transition(StateBackoff, reason.String(), &delay)
}

// handleBackoffFired opens the next session when the current timer lapses.
func (c *Controller) handleBackoffFired(gen uint64) {
	c.mu.Lock()
	if c.state != StateBackoff || gen != c.backoffGen {
		c.mu.Unlock()
		return
	}
	c.backoff = nil
	c.retryAt = time.Time{}
	c.mu.Unlock()

	c.open()
}

// reconnectNow replaces whatever is in progress with a fresh open attempt.
func (c *Controller) reconnectNow() {
	switch c.State() {
	case StateOpening:
		c.logger.Debug("ReconnectNow: open already in progress")
	case StateAuthenticating, StateUsable:
		c.mu.Lock()
		s := c.current
		c.current = nil
		c.mu.Unlock()

		c.transition(StateClosing, "reconnect requested", nil)
		if s != nil {
			s.release(wire.CloseNormal, "reconnect")
		}
		c.setStatus(StatusDisconnected)
		c.open()
	default:
		c.open()
	}
}

// shutdown tears down everything and goes Idle. Handlers are already
// suppressed by the epoch bump in Disconnect.
func (c *Controller) shutdown(why string) {
	c.mu.Lock()
	c.stopBackoffLocked()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s != nil {
		c.logger.Info("shutdown: closing session", "sessionID", s.id, "why", why)
		s.release(wire.CloseNormal, why)
	}
	c.transition(StateIdle, ReasonNormal.String(), nil)
	c.setStatus(StatusDisconnected)
}

// stopBackoffLocked cancels the backoff timer. Caller holds mu.
func (c *Controller) stopBackoffLocked() {
	c.backoffGen++
	if c.backoff != nil {
		c.backoff.Stop()
		c.backoff = nil
	}
	c.retryAt = time.Time{}
}

// invoke runs a handler unless a Disconnect has overtaken it.
func (c *Controller) invoke(fn func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()

	if c.superseded() {
		return
	}
	fn()
}

// transition records a state change and notifies the state callback.
func (c *Controller) transition(next State, reason string, delay *time.Duration) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	fn := c.onStateChange
	sid := ""
	if c.current != nil {
		sid = c.current.id
	}
	c.mu.Unlock()

	if prev == next {
		return
	}

	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sid,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		Endpoint:  c.config.URL,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityController,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
			Delay:    delay,
		},
	})

	if fn != nil {
		c.invoke(func() { fn(prev, next) })
	}
}

// setStatus records a status change and notifies the status callback.
func (c *Controller) setStatus(next Status) {
	c.mu.Lock()
	prev := c.status
	c.status = next
	fn := c.onStatusChange
	c.mu.Unlock()

	if prev == next {
		return
	}

	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		Endpoint:  c.config.URL,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityStatus,
			OldState: prev.String(),
			NewState: next.String(),
		},
	})

	if fn != nil {
		c.invoke(func() { fn(next) })
	}
}

func (c *Controller) logAuth(s *session, from, to AuthState, reason string) {
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		Endpoint:  c.config.URL,
		Attempt:   s.attempt,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAuth,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (c *Controller) logMessage(s *session, dir log.Direction, msg *log.MessageEvent) {
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Endpoint:  c.config.URL,
		Attempt:   s.attempt,
		Message:   msg,
	})
}

func (c *Controller) logDropped(s *session, data []byte, cause string) {
	frameType, _ := wire.PeekType(data)
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Endpoint:  c.config.URL,
		Attempt:   s.attempt,
		Frame:     log.NewFrameEvent(data),
		Message: &log.MessageEvent{
			Type:      log.MessageTypeUnknown,
			FrameType: string(frameType),
			Dropped:   true,
			Detail:    cause,
		},
	})
}

func (c *Controller) logControl(s *session, typ log.ControlMsgType, code *int) {
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryControl,
		Endpoint:  c.config.URL,
		Attempt:   s.attempt,
		ControlMsg: &log.ControlMsgEvent{
			Type:      typ,
			CloseCode: code,
		},
	})
}

func (c *Controller) logError(s *session, err error, reason CloseReason) {
	ev := log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Endpoint:  c.config.URL,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: reason.String(),
		},
	}
	if s != nil {
		ev.SessionID = s.id
		ev.Attempt = s.attempt
	}
	if code, ok := transport.CloseCode(err); ok {
		ev.Error.Code = &code
	}
	c.plog.Log(ev)
}
