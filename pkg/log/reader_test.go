package log

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string, f Filter) []Event {
	t.Helper()
	r, err := NewReader(path, f)
	require.NoError(t, err)
	defer r.Close()

	var out []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, ev)
	}
}

func frameTypes(events []Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Message != nil {
			out = append(out, ev.Message.FrameType)
		}
	}
	return out
}

func TestReaderReplaysSessionInOrder(t *testing.T) {
	trace := sessionTrace()
	events := readAll(t, writeCapture(t, trace), Filter{})
	require.Len(t, events, len(trace))

	for i := range trace {
		assert.True(t, events[i].Timestamp.Equal(trace[i].Timestamp), "event %d", i)
		assert.Equal(t, trace[i].SessionID, events[i].SessionID, "event %d", i)
	}
	backoff := events[8].StateChange
	require.NotNil(t, backoff)
	assert.Equal(t, "liveness-timeout", backoff.Reason)
	assert.Equal(t, 1200*time.Millisecond, *backoff.Delay)
}

func TestReaderFilters(t *testing.T) {
	path := writeCapture(t, sessionTrace())

	notification := MessageTypeNotification
	out := DirectionOut
	control := CategoryControl
	state := CategoryState
	end := traceStart.Add(time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"second session", Filter{SessionID: "sess-b"}, 1},
		{"notifications", Filter{MessageType: &notification}, 3},
		{"outbound", Filter{Direction: &out}, 2},
		{"control frames", Filter{Category: &control}, 2},
		{"state changes", Filter{Category: &state}, 2},
		{"first second only", Filter{TimeEnd: &end}, 7},
		{"one clip", Filter{ClipID: "c1"}, 2},
		{"one clip in one session", Filter{ClipID: "c1", SessionID: "sess-a"}, 1},
		{"dropped frames", Filter{DroppedOnly: true}, 1},
		{"auth results", Filter{FrameType: "auth_success"}, 1},
		{"frame type excludes state events", Filter{FrameType: "CLOSING"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, readAll(t, path, tt.filter), tt.want)
		})
	}
}

func TestReaderDroppedFrameKeepsRawBytes(t *testing.T) {
	events := readAll(t, writeCapture(t, sessionTrace()), Filter{DroppedOnly: true})
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "received before auth_success", ev.Message.Detail)
	require.NotNil(t, ev.Frame)
	assert.Contains(t, string(ev.Frame.Data), `"id":"early"`)
}

func TestReaderTimeStartIsInclusive(t *testing.T) {
	path := writeCapture(t, sessionTrace())
	start := traceStart.Add(9000 * time.Millisecond)

	events := readAll(t, path, Filter{TimeStart: &start})
	require.Len(t, events, 3)
	assert.Equal(t, ControlMsgClose, events[0].ControlMsg.Type)
	assert.Equal(t, []string{"updated_clip"}, frameTypes(events))
}

func TestReaderEmptyCapture(t *testing.T) {
	assert.Empty(t, readAll(t, writeCapture(t, nil), Filter{}))
}

func TestReaderTruncatedCapture(t *testing.T) {
	path := writeCapture(t, sessionTrace()[:3])

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-4))

	r, err := NewReader(path, Filter{})
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 2; i++ {
		_, err := r.Next()
		require.NoError(t, err, "event %d", i)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Contains(t, err.Error(), "after 2 events")
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader("/nonexistent/watch.clog", Filter{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
