package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var traceStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// sessionTrace is what one watcher run records: a session that authenticates,
// receives clips, goes silent and is closed with 4000, then a second session.
func sessionTrace() []Event {
	at := func(ms int) time.Time { return traceStart.Add(time.Duration(ms) * time.Millisecond) }
	delay := 1200 * time.Millisecond
	return []Event{
		{
			Timestamp: at(0), SessionID: "sess-a", Layer: LayerSession, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityController, OldState: "IDLE", NewState: "OPENING"},
		},
		{
			Timestamp: at(5), SessionID: "sess-a", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Frame:   NewFrameEvent([]byte(`{"type":"new_clip","id":"early","content":"x","tags":[]}`)),
			Message: &MessageEvent{Type: MessageTypeUnknown, FrameType: "new_clip", Dropped: true, Detail: "received before auth_success"},
		},
		{
			Timestamp: at(10), SessionID: "sess-a", Direction: DirectionOut, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeAuth, FrameType: "auth"},
		},
		{
			Timestamp: at(20), SessionID: "sess-a", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeAuthResult, FrameType: "auth_success"},
		},
		{
			Timestamp: at(30), SessionID: "sess-a", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeNotification, FrameType: "new_clip", ClipID: "c1"},
		},
		{
			Timestamp: at(40), SessionID: "sess-a", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeNotification, FrameType: "clips_cleaned_up", Count: intPtr(3)},
		},
		{
			Timestamp: at(50), SessionID: "sess-a", Direction: DirectionIn, Layer: LayerTransport, Category: CategoryControl,
			ControlMsg: &ControlMsgEvent{Type: ControlMsgKeepalive},
		},
		{
			Timestamp: at(9000), SessionID: "sess-a", Direction: DirectionOut, Layer: LayerTransport, Category: CategoryControl,
			ControlMsg: &ControlMsgEvent{Type: ControlMsgClose, CloseCode: intPtr(4000)},
		},
		{
			Timestamp: at(9001), SessionID: "sess-a", Layer: LayerSession, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityController, OldState: "CLOSING", NewState: "BACKOFF", Reason: "liveness-timeout", Delay: &delay},
		},
		{
			Timestamp: at(10300), SessionID: "sess-b", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeNotification, FrameType: "updated_clip", ClipID: "c1"},
		},
	}
}

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watch.clog")
	c, err := OpenCapture(path)
	require.NoError(t, err)
	for _, e := range events {
		c.Log(e)
	}
	require.NoError(t, c.Close())
	return path
}
