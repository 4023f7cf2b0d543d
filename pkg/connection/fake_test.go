package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/clipsync/clipsync-go/pkg/log"
	"github.com/clipsync/clipsync-go/pkg/transport"
)

var errDialRefused = errors.New("dial refused")

// fakeConn is an in-memory transport.Conn driven by the test.
type fakeConn struct {
	inbound chan []byte
	readErr chan error
	closed  chan struct{}
	once    sync.Once
	dialer  *fakeDialer

	mu        sync.Mutex
	written   [][]byte
	closeCode int
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.readErr:
		return nil, err
	case <-c.closed:
		return nil, transport.ErrClosed
	}
}

func (c *fakeConn) WriteFrame(data []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.mu.Unlock()
		close(c.closed)
		c.dialer.live.Add(-1)
	})
	return nil
}

// push delivers a text frame to the controller.
func (c *fakeConn) push(frame string) {
	c.inbound <- []byte(frame)
}

// fail makes the pending read return err.
func (c *fakeConn) fail(err error) {
	c.readErr <- err
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) code() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

func (c *fakeConn) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// fakeDialer hands out fakeConns and records how many sessions are live.
type fakeDialer struct {
	mu          sync.Mutex
	conns       []*fakeConn
	failures    int
	block       bool
	onKeepalive func()

	dials   atomic.Int32
	live    atomic.Int32
	maxLive atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, _ string, onKeepalive func()) (transport.Conn, error) {
	d.dials.Add(1)

	d.mu.Lock()
	block := d.block
	if d.failures > 0 {
		d.failures--
		d.mu.Unlock()
		return nil, &transport.Error{Op: "dial", Err: errDialRefused}
	}
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, &transport.Error{Op: "dial", Err: ctx.Err()}
	}

	c := &fakeConn{
		inbound: make(chan []byte, 256),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
		dialer:  d,
	}
	if n := d.live.Add(1); n > d.maxLive.Load() {
		d.maxLive.Store(n)
	}

	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.onKeepalive = onKeepalive
	d.mu.Unlock()
	return c, nil
}

// failNext makes the next n dials fail.
func (d *fakeDialer) failNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

func (d *fakeDialer) setBlock(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.block = on
}

// conn returns the i-th successful connection, waiting for it to appear.
func (d *fakeDialer) conn(t *testing.T, i int) *fakeConn {
	t.Helper()
	var c *fakeConn
	waitFor(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.conns) > i {
			c = d.conns[i]
			return true
		}
		return false
	}, "connection %d never dialed", i)
	return c
}

// keepalive simulates a transport-level ping on the latest connection.
func (d *fakeDialer) keepalive() {
	d.mu.Lock()
	fn := d.onKeepalive
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// stubGuard is a testify-backed transport.Guard.
type stubGuard struct{ mock.Mock }

func (g *stubGuard) MayConnect() bool { return g.Called().Bool(0) }

// recordingLogger keeps protocol events in memory.
type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(ev log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// backoffDelays returns the delays of all transitions into Backoff.
func (r *recordingLogger) backoffDelays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Duration
	for _, ev := range r.events {
		sc := ev.StateChange
		if sc != nil && sc.Entity == log.StateEntityController && sc.NewState == StateBackoff.String() && sc.Delay != nil {
			out = append(out, *sc.Delay)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf(msg, args...)
}

// fastBackoff has no jitter so delays are exact.
var fastBackoff = BackoffConfig{
	Initial:    10 * time.Millisecond,
	Max:        80 * time.Millisecond,
	Multiplier: 2,
}

func newTestController(t *testing.T, d *fakeDialer, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := Config{
		URL:               "wss://clips.example.test/ws",
		Dialer:            d,
		Guard:             transport.AllowAll,
		KeepaliveInterval: time.Minute,
		Backoff:           fastBackoff,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
