package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture files hold clip IDs and excerpts, so they are private to the user.
const (
	captureFileMode = 0o600
	captureDirMode  = 0o700
)

var (
	captureEnc = mustEncMode(cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	})
	captureDec = mustDecMode(cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyQuiet,
		MaxNestedLevels: 16,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture encoder: %v", err))
	}
	return em
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture decoder: %v", err))
	}
	return dm
}

// EncodeEvent returns the capture record for one event.
func EncodeEvent(event Event) ([]byte, error) {
	return captureEnc.Marshal(event)
}

// DecodeEvent parses one capture record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := captureDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Capture appends protocol events to a .clog file as a stream of CBOR
// records. Several watcher runs may share one file; SessionID tells their
// events apart.
//
// A write failure is remembered and stops further writes, since the
// controller has nowhere to report it. Err and Close return it.
type Capture struct {
	path string

	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	written int
	err     error
}

// OpenCapture opens path for appending, creating it and its directory if needed.
func OpenCapture(path string) (*Capture, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, captureDirMode); err != nil {
			return nil, fmt.Errorf("log: create capture dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, captureFileMode)
	if err != nil {
		return nil, fmt.Errorf("log: open capture: %w", err)
	}
	return &Capture{path: path, file: f, enc: captureEnc.NewEncoder(f)}, nil
}

// Path returns the capture file's path.
func (c *Capture) Path() string { return c.path }

// Log appends event. An event without a timestamp is stamped with the current time.
func (c *Capture) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil || c.err != nil {
		return
	}
	if err := c.enc.Encode(event); err != nil {
		c.err = fmt.Errorf("log: write capture: %w", err)
		return
	}
	c.written++
}

// Written returns the number of events appended since OpenCapture.
func (c *Capture) Written() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

// Err returns the first write failure, if any.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the file and returns the first write failure, if any.
// Later Log calls are ignored. Close is idempotent.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return c.err
	}
	err := c.file.Close()
	c.file = nil
	if c.err != nil {
		return c.err
	}
	return err
}

var _ Logger = (*Capture)(nil)
