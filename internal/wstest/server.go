// Package wstest runs an in-process TLS WebSocket push server for tests.
package wstest

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clipsync/clipsync-go/pkg/wire"
)

// Server is a push server backed by httptest.NewTLSServer.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	// Conns receives each accepted connection.
	Conns chan *Conn

	reject atomic.Bool
	dials  atomic.Int32

	mu       sync.Mutex
	accepted []*Conn
}

// NewServer starts a TLS push server.
func NewServer() *Server {
	s := &Server{
		Conns: make(chan *Conn, 16),
	}
	s.srv = httptest.NewTLSServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the wss:// endpoint of the server.
func (s *Server) URL() string {
	return "wss" + strings.TrimPrefix(s.srv.URL, "https") + "/ws"
}

// TLSConfig returns a client TLS configuration that trusts the server certificate.
func (s *Server) TLSConfig() *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(s.srv.Certificate())
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
}

// Reject makes the server refuse upgrades with 503 while on is true.
func (s *Server) Reject(on bool) { s.reject.Store(on) }

// Dials returns how many upgrade requests arrived.
func (s *Server) Dials() int { return int(s.dials.Load()) }

// Close shuts the server down and drops all connections.
func (s *Server) Close() {
	s.mu.Lock()
	for _, c := range s.accepted {
		c.Drop()
	}
	s.mu.Unlock()
	s.srv.CloseClientConnections()
	s.srv.Close()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.dials.Add(1)
	if s.reject.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Conn{ws: ws, Frames: make(chan []byte, 64), Closed: make(chan int, 1)}
	s.mu.Lock()
	s.accepted = append(s.accepted, c)
	s.mu.Unlock()
	go c.readLoop()
	s.Conns <- c
}

// Conn is the server side of one client connection.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex

	// Frames receives every text frame the client sends.
	Frames chan []byte

	// Closed receives the close code sent by the client (or 1006 on abrupt loss).
	Closed chan int
}

func (c *Conn) readLoop() {
	defer close(c.Frames)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
			}
			c.Closed <- code
			return
		}
		c.Frames <- data
	}
}

// SendRaw writes a text frame verbatim.
func (c *Conn) SendRaw(data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(data))
}

// SendBinary writes a binary frame.
func (c *Conn) SendBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Send encodes and writes a server frame.
func (c *Conn) Send(f wire.Frame) error {
	data, err := wire.Encode(f)
	if err != nil {
		return err
	}
	return c.SendRaw(string(data))
}

// Ping sends a WebSocket ping control frame.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, []byte("ka"), time.Now().Add(time.Second))
}

// CloseWith sends a close frame with code and text, then drops the connection.
func (c *Conn) CloseWith(code int, text string) {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	time.Sleep(20 * time.Millisecond)
	c.ws.Close()
}

// Drop closes the TCP connection without a close frame.
func (c *Conn) Drop() {
	c.ws.NetConn().Close()
}
