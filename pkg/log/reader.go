package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrTruncated reports a capture whose last record was cut short, as happens
// when the watcher is killed mid-write. Events before it are intact.
var ErrTruncated = errors.New("log: capture ends in a partial event")

// Filter selects capture events. Zero fields match everything.
type Filter struct {
	SessionID string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive and TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	MessageType *MessageType

	// FrameType matches the frame's "type" field, such as new_clip or auth_error.
	FrameType string

	// ClipID matches wire events about one clip.
	ClipID string

	// DroppedOnly keeps frames that never reached a handler.
	DroppedOnly bool
}

// Match reports whether event passes every criterion of f.
func (f Filter) Match(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}

	if f.MessageType == nil && f.FrameType == "" && f.ClipID == "" && !f.DroppedOnly {
		return true
	}
	m := event.Message
	if m == nil {
		return false
	}
	switch {
	case f.MessageType != nil && m.Type != *f.MessageType:
		return false
	case f.FrameType != "" && m.FrameType != f.FrameType:
		return false
	case f.ClipID != "" && m.ClipID != f.ClipID:
		return false
	case f.DroppedOnly && !m.Dropped:
		return false
	}
	return true
}

// Reader streams the events of a capture file that pass a filter.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	filter Filter
	read   int
}

// NewReader opens the capture at path. Use a zero Filter to read every event.
func NewReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: captureDec.NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the capture.
// A partial final record yields an error wrapping ErrTruncated.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.dec.Decode(&event)
		switch {
		case err == io.EOF:
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("%w after %d events", ErrTruncated, r.read)
		case err != nil:
			return Event{}, fmt.Errorf("log: event %d: %w", r.read+1, err)
		}
		r.read++
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Close closes the capture file.
func (r *Reader) Close() error {
	return r.file.Close()
}
