package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ClientState contains the runtime state for a watch client.
type ClientState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Endpoint is the last push-channel URL that reached the usable state.
	Endpoint string `json:"endpoint,omitempty"`

	// Instance is the mDNS instance name Endpoint was discovered from, if any.
	Instance string `json:"instance,omitempty"`

	// LastSessionID is the ID of the most recent usable session.
	LastSessionID string `json:"last_session_id,omitempty"`

	// LastConnectedAt is when the client last became connected.
	LastConnectedAt time.Time `json:"last_connected_at,omitempty"`

	// LastNotificationAt is when the last notification was delivered.
	LastNotificationAt time.Time `json:"last_notification_at,omitempty"`

	// AuthRejected is set when the server refused the stored credential.
	// The client does not auto-connect again until the credential changes.
	AuthRejected bool `json:"auth_rejected,omitempty"`
}

// ClientStateStore manages persistence of client state to a JSON file.
type ClientStateStore struct {
	mu   sync.Mutex
	path string
}

// NewClientStateStore creates a new client state store.
func NewClientStateStore(path string) *ClientStateStore {
	return &ClientStateStore{path: path}
}

// Path returns the state file location.
func (s *ClientStateStore) Path() string {
	return s.path
}

// Save persists the client state to disk.
func (s *ClientStateStore) Save(state *ClientState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Replace atomically.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the client state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *ClientStateStore) Load() (*ClientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &ClientState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Update loads the state, applies fn and saves the result.
// A missing file starts from an empty state.
func (s *ClientStateStore) Update(fn func(*ClientState)) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	if state == nil {
		state = &ClientState{}
	}
	fn(state)
	return s.Save(state)
}

// Clear removes the state file.
func (s *ClientStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
