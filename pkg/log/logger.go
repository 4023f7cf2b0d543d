package log

// Logger receives protocol events from the controller and the dispatcher.
// Log is called on the controller's event loop and must not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event.
type NoopLogger struct{}

// Log implements Logger.
func (NoopLogger) Log(Event) {}

// Tee sends each event to every logger in order. Nil entries are skipped,
// so optional sinks can be listed unconditionally.
type Tee []Logger

// Log implements Logger.
func (t Tee) Log(event Event) {
	for _, l := range t {
		if l != nil {
			l.Log(event)
		}
	}
}

// LoggerFunc adapts an ordinary function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

var (
	_ Logger = NoopLogger{}
	_ Logger = Tee(nil)
	_ Logger = LoggerFunc(nil)
)
