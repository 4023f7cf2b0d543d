package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipsync/clipsync-go/internal/wstest"
	"github.com/clipsync/clipsync-go/pkg/transport"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

func newWSController(t *testing.T, srv *wstest.Server, credential string) *Controller {
	t.Helper()
	tlsConf := srv.TLSConfig()
	c, err := NewController(Config{
		URL:        srv.URL(),
		Credential: credential,
		Dialer:     transport.NewWSDialer(transport.WSDialerConfig{TLSConfig: tlsConf}),
		Guard:      transport.NewSecureGuard(srv.URL(), tlsConf),
		Backoff:    fastBackoff,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func acceptConn(t *testing.T, srv *wstest.Server) *wstest.Conn {
	t.Helper()
	select {
	case conn := <-srv.Conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server accepted no connection")
		return nil
	}
}

func TestControllerOverWebSocket(t *testing.T) {
	srv := wstest.NewServer()
	defer srv.Close()

	c := newWSController(t, srv, "ws-token")
	clips := make(chan wire.NewClip, 1)
	c.OnNewClip(func(n wire.NewClip) { clips <- n })

	require.NoError(t, c.Connect())
	conn := acceptConn(t, srv)

	select {
	case frame := <-conn.Frames:
		assert.JSONEq(t, `{"type":"auth","token":"ws-token"}`, string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("no auth frame")
	}

	require.NoError(t, conn.Send(wire.AuthSuccess{}))
	waitFor(t, func() bool { return c.Status() == StatusConnected }, "never connected")

	require.NoError(t, conn.Ping())
	require.NoError(t, conn.Send(wire.NewClip{ID: "a1", Content: "hi", Tags: []string{"x"}}))
	select {
	case n := <-clips:
		assert.Equal(t, "a1", n.ID)
		assert.Equal(t, []string{"x"}, n.Tags)
	case <-time.After(2 * time.Second):
		t.Fatal("new_clip not delivered")
	}

	c.Disconnect()
	select {
	case code := <-conn.Closed:
		assert.Equal(t, wire.CloseNormal, code)
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no close")
	}
}

func TestControllerWebSocketDropReconnects(t *testing.T) {
	srv := wstest.NewServer()
	defer srv.Close()

	c := newWSController(t, srv, "")
	require.NoError(t, c.Connect())
	first := acceptConn(t, srv)
	waitFor(t, func() bool { return c.Status() == StatusConnected }, "never connected")

	first.Drop()
	acceptConn(t, srv)
	waitFor(t, func() bool { return c.Status() == StatusConnected }, "never reconnected")
	assert.Equal(t, 2, srv.Dials())
}

func TestControllerWebSocketAuthRejected(t *testing.T) {
	srv := wstest.NewServer()
	defer srv.Close()

	c := newWSController(t, srv, "nope")
	authErr := make(chan string, 1)
	c.OnAuthError(func(msg string) { authErr <- msg })

	require.NoError(t, c.Connect())
	conn := acceptConn(t, srv)
	<-conn.Frames

	require.NoError(t, conn.Send(wire.AuthError{Message: "bad token"}))
	select {
	case msg := <-authErr:
		assert.Equal(t, "bad token", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("auth error not reported")
	}
	select {
	case code := <-conn.Closed:
		assert.Equal(t, wire.CloseAuthRejected, code)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not close")
	}

	time.Sleep(3 * fastBackoff.Max)
	assert.Equal(t, 1, srv.Dials())
	assert.Equal(t, StateIdle, c.State())
}
