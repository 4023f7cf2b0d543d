package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogAdapterLogsFrameEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "sess-123",
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Frame: &FrameEvent{
			Size: 256,
			Data: []byte{0x01, 0x02},
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	// Parse JSON log entry
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	// Verify key fields
	if logEntry["session_id"] != "sess-123" {
		t.Errorf("session_id: got %v, want %q", logEntry["session_id"], "sess-123")
	}
	if logEntry["direction"] != "IN" {
		t.Errorf("direction: got %v, want %q", logEntry["direction"], "IN")
	}
	if logEntry["layer"] != "TRANSPORT" {
		t.Errorf("layer: got %v, want %q", logEntry["layer"], "TRANSPORT")
	}
	if logEntry["frame_size"] != float64(256) {
		t.Errorf("frame_size: got %v, want %v", logEntry["frame_size"], 256)
	}
}

func TestSlogAdapterLogsMessageEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	count := 2
	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "sess-456",
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:      MessageTypeNotification,
			FrameType: "clips_cleaned_up",
			Count:     &count,
		},
	})

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["msg_type"] != "NOTIFICATION" {
		t.Errorf("msg_type: got %v, want %q", logEntry["msg_type"], "NOTIFICATION")
	}
	if logEntry["frame_type"] != "clips_cleaned_up" {
		t.Errorf("frame_type: got %v, want %q", logEntry["frame_type"], "clips_cleaned_up")
	}
	if logEntry["count"] != float64(2) {
		t.Errorf("count: got %v, want %v", logEntry["count"], 2)
	}
	if _, ok := logEntry["clip_id"]; ok {
		t.Error("clip_id should be omitted when empty")
	}
}

func TestSlogAdapterLogsStateChangeWithDelay(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	delay := 4 * time.Second
	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "sess-789",
		Layer:     LayerSession,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityController,
			OldState: "CLOSING",
			NewState: "BACKOFF",
			Reason:   "liveness-timeout",
			Delay:    &delay,
		},
	})

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if logEntry["reason"] != "liveness-timeout" {
		t.Errorf("reason: got %v", logEntry["reason"])
	}
	if logEntry["new_state"] != "BACKOFF" {
		t.Errorf("new_state: got %v", logEntry["new_state"])
	}
	if _, ok := logEntry["delay"]; !ok {
		t.Error("delay attribute missing")
	}
}

func TestSlogAdapterSkipsBelowDebug(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	adapter.Log(Event{Timestamp: time.Now(), SessionID: "quiet"})

	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("expected no output at info level, got %q", buf.String())
	}
}

func TestSlogAdapterIncludesSessionID(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "5f0c1e7a-2b44-4d1e-9a57-3f5d2f2c8b10",
		Direction: DirectionIn,
		Layer:     LayerSession,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityController,
			NewState: "USABLE",
		},
	})

	output := buf.String()
	if !strings.Contains(output, "5f0c1e7a-2b44-4d1e-9a57-3f5d2f2c8b10") {
		t.Error("output does not contain session ID")
	}
}

func TestSlogAdapterInterfaceSatisfaction(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
