// Package log provides structured protocol capture for clipsync push channels.
//
// This package defines the Logger interface and Event types for recording
// what happened on a channel at several layers (transport, wire, session).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable trace of sessions for debugging reconnect storms,
// silent drops and authentication failures.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	capture, err := log.OpenCapture("/var/log/clipsync/watch.clog")
//	...
//	cfg.ProtocolLogger = log.Tee{capture, log.NewSlogAdapter(slog.Default())}
//
// Captures are read back with NewReader, optionally narrowed by a Filter.
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Wire: Decoded frames (MessageEvent)
//   - Session: State changes and close reasons (StateChangeEvent)
//
// Keep-alives and closes have ControlMsgEvent; failures have ErrorEventData.
//
// # File Format
//
// Capture files use CBOR encoding with the .clog extension. The clipsync-log
// command provides viewing, statistics and export.
package log
