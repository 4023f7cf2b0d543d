package connection

import "github.com/clipsync/clipsync-go/pkg/transport"

// event is anything the controller loop consumes.
type event any

// Caller commands. Connect and ReconnectNow carry the disconnect epoch they
// were issued in so a command overtaken by Disconnect is not applied.
type (
	cmdConnect    struct{ epoch uint64 }
	cmdReconnect  struct{ epoch uint64 }
	cmdDisconnect struct{}
	cmdClose      struct{}
)

// Session events. Each carries the ID of the session that produced it and is
// discarded if that session is no longer current.
type (
	evOpened struct {
		sid  string
		conn transport.Conn
		err  error
	}

	evFrame struct {
		sid  string
		data []byte
	}

	evKeepalive struct{ sid string }

	evReadFailed struct {
		sid string
		err error
	}

	evLivenessExpired struct{ sid string }

	evAuthTimeout struct{ sid string }
)

// evBackoffFired is delivered by the backoff timer. gen identifies the timer.
type evBackoffFired struct{ gen uint64 }
