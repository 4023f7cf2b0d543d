package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClientStateStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := t.TempDir()
		store := NewClientStateStore(filepath.Join(dir, "state.json"))

		connected := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
		state := &ClientState{
			Endpoint:        "wss://clips.local:8443/ws",
			Instance:        "Desk Server",
			LastSessionID:   "6f1c2d3e-0000-4000-8000-000000000001",
			LastConnectedAt: connected,
		}

		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if got.Version != StateVersion {
			t.Errorf("Version = %d, want %d", got.Version, StateVersion)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt should be set")
		}
		if got.Endpoint != state.Endpoint {
			t.Errorf("Endpoint = %q, want %q", got.Endpoint, state.Endpoint)
		}
		if got.Instance != "Desk Server" {
			t.Errorf("Instance = %q, want %q", got.Instance, "Desk Server")
		}
		if !got.LastConnectedAt.Equal(connected) {
			t.Errorf("LastConnectedAt = %v, want %v", got.LastConnectedAt, connected)
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		dir := t.TempDir()
		store := NewClientStateStore(filepath.Join(dir, "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("LoadCorrupt", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "state.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := NewClientStateStore(path).Load(); err == nil {
			t.Error("Load() expected error for corrupt file")
		}
	})

	t.Run("CreatesParentDirectory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "deeper", "state.json")
		store := NewClientStateStore(path)

		if err := store.Save(&ClientState{Endpoint: "wss://a/ws"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("state file not created: %v", err)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("temporary file left behind")
		}
	})

	t.Run("Update", func(t *testing.T) {
		dir := t.TempDir()
		store := NewClientStateStore(filepath.Join(dir, "state.json"))

		if err := store.Update(func(s *ClientState) { s.Endpoint = "wss://a/ws" }); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if err := store.Update(func(s *ClientState) { s.AuthRejected = true }); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Endpoint != "wss://a/ws" || !got.AuthRejected {
			t.Errorf("Update() lost fields: %+v", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		dir := t.TempDir()
		store := NewClientStateStore(filepath.Join(dir, "state.json"))

		if err := store.Save(&ClientState{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("Clear() on missing file error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Error("state should be gone after Clear()")
		}
	})
}
