package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket defaults.
const (
	// DefaultHandshakeTimeout bounds the TCP, TLS and HTTP upgrade exchange.
	DefaultHandshakeTimeout = 15 * time.Second

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxFrameSize is the largest inbound frame accepted (1 MiB).
	DefaultMaxFrameSize = 1 << 20
)

// WSDialerConfig configures a WSDialer.
type WSDialerConfig struct {
	// TLSConfig is used for wss connections. Nil means system defaults.
	TLSConfig *tls.Config

	// Header is sent with the upgrade request.
	Header http.Header

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxFrameSize     int64
}

// WSDialer dials push channels with gorilla/websocket.
type WSDialer struct {
	config WSDialerConfig
	dialer *websocket.Dialer
}

// NewWSDialer creates a WebSocket dialer.
func NewWSDialer(cfg WSDialerConfig) *WSDialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	return &WSDialer{
		config: cfg,
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			TLSClientConfig:   cfg.TLSConfig,
			EnableCompression: true,
		},
	}
}

// Dial opens a WebSocket connection to url.
func (d *WSDialer) Dial(ctx context.Context, url string, onKeepalive func()) (Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, url, d.config.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &Error{Op: "dial", Err: err}
	}
	ws.SetReadLimit(d.config.MaxFrameSize)

	c := &wsConn{ws: ws, writeTimeout: d.config.WriteTimeout}
	ws.SetPingHandler(func(appData string) error {
		if onKeepalive != nil {
			onKeepalive()
		}
		err := ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	ws.SetPongHandler(func(string) error {
		if onKeepalive != nil {
			onKeepalive()
		}
		return nil
	})
	return c, nil
}

// wsConn adapts a gorilla connection to Conn.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// ReadFrame returns the next text frame. Binary frames are skipped.
func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil, &CloseError{Code: ce.Code, Text: ce.Text}
			}
			return nil, &Error{Op: "read", Err: err}
		}
		if mt == websocket.TextMessage {
			return data, nil
		}
	}
}

// WriteFrame sends one text frame.
func (c *wsConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return &Error{Op: "write", Err: err}
	}
	return nil
}

// Close sends a close frame and closes the underlying connection.
func (c *wsConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

var _ Dialer = (*WSDialer)(nil)
