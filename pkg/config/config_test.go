package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipsync/clipsync-go/pkg/connection"
	"github.com/clipsync/clipsync-go/pkg/log"
)

func TestParse(t *testing.T) {
	t.Run("Minimal", func(t *testing.T) {
		cfg, err := Parse([]byte("server:\n  url: wss://clips.example.com/ws\n"))
		require.NoError(t, err)

		assert.Equal(t, "wss://clips.example.com/ws", cfg.Server.URL)
		assert.Equal(t, 30*time.Second, cfg.Server.Keepalive)
		assert.Equal(t, connection.DefaultAuthTimeout, cfg.Server.AuthTimeout)
		assert.Equal(t, time.Second, cfg.Reconnect.Initial)
		assert.Equal(t, 30*time.Second, cfg.Reconnect.Max)
		assert.Equal(t, 2.0, cfg.Reconnect.Multiplier)
		assert.Equal(t, 0.2, cfg.Reconnect.Jitter)
		assert.Equal(t, DefaultCredentialEnv, cfg.Server.CredentialEnv)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("Full", func(t *testing.T) {
		doc := `
server:
  url: wss://clips.example.com/ws
  credential: secret
  server_name: clips.internal
  keepalive_interval: 15s
  auth_timeout: 5s
  dial_timeout: 20s
reconnect:
  initial: 500ms
  max: 1m
  multiplier: 1.5
  jitter: 0.1
discovery:
  enabled: true
  instance: Desk Server
  interface: eth0
  timeout: 2s
journal:
  path: /var/lib/clipsync/journal.db
  retention: 48h
logging:
  level: debug
  format: json
  protocol_log: /tmp/watch.clog
state_path: /var/lib/clipsync/state.json
`
		cfg, err := Parse([]byte(doc))
		require.NoError(t, err)

		assert.Equal(t, "secret", cfg.Server.Credential)
		assert.Equal(t, "clips.internal", cfg.Server.ServerName)
		assert.Equal(t, 15*time.Second, cfg.Server.Keepalive)
		assert.Equal(t, 5*time.Second, cfg.Server.AuthTimeout)
		assert.Equal(t, 20*time.Second, cfg.Server.DialTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.Initial)
		assert.Equal(t, time.Minute, cfg.Reconnect.Max)
		assert.Equal(t, 1.5, cfg.Reconnect.Multiplier)
		assert.True(t, cfg.Discovery.Enabled)
		assert.Equal(t, "Desk Server", cfg.Discovery.Instance)
		assert.Equal(t, 48*time.Hour, cfg.Journal.Retention)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "/tmp/watch.clog", cfg.Logging.ProtocolLog)
		assert.Equal(t, "/var/lib/clipsync/state.json", cfg.StatePath)
	})

	t.Run("DiscoveryWithoutURL", func(t *testing.T) {
		cfg, err := Parse([]byte("discovery:\n  enabled: true\n"))
		require.NoError(t, err)
		assert.Empty(t, cfg.Server.URL)
	})

	t.Run("ExpandsHome", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		cfg, err := Parse([]byte("server:\n  url: wss://a/ws\njournal:\n  path: ~/clips/journal.db\n"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "clips", "journal.db"), cfg.Journal.Path)
	})

	t.Run("BadYAML", func(t *testing.T) {
		_, err := Parse([]byte("server: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "YAML parse error")
	})

	t.Run("BadDuration", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  url: wss://a/ws\n  auth_timeout: soon\n"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"Valid", func(c *Config) {}, nil},
		{"NoEndpoint", func(c *Config) { c.Server.URL = "" }, ErrNoEndpoint},
		{"HTTPScheme", func(c *Config) { c.Server.URL = "https://a/ws" }, ErrInvalidURL},
		{"NoHost", func(c *Config) { c.Server.URL = "wss:///ws" }, ErrInvalidURL},
		{"PlainWSAllowed", func(c *Config) { c.Server.URL = "ws://a/ws" }, nil},
		{"ZeroInitial", func(c *Config) { c.Reconnect.Initial = 0 }, ErrInvalidBackoff},
		{"MaxBelowInitial", func(c *Config) { c.Reconnect.Max = 100 * time.Millisecond }, ErrInvalidBackoff},
		{"FlatMultiplier", func(c *Config) { c.Reconnect.Multiplier = 1 }, ErrInvalidBackoff},
		{"FullJitter", func(c *Config) { c.Reconnect.Jitter = 1 }, ErrInvalidBackoff},
		{"NegativeJitter", func(c *Config) { c.Reconnect.Jitter = -0.1 }, ErrInvalidBackoff},
		{"BadLevel", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLogLevel},
		{"NegativeRetention", func(c *Config) { c.Journal.Retention = -time.Hour }, ErrInvalidRetention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.URL = "wss://clips.example.com/ws"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: wss://a/ws\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://a/ws", cfg.Server.URL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveCredential(t *testing.T) {
	env := map[string]string{"CLIPSYNC_TOKEN": " from-env \n", "OTHER": "other"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	assert.Equal(t, "from-env", cfg.ResolveCredential(lookup))

	cfg.Server.CredentialEnv = "OTHER"
	assert.Equal(t, "other", cfg.ResolveCredential(lookup))

	cfg.Server.Credential = "inline"
	assert.Equal(t, "inline", cfg.ResolveCredential(lookup))

	cfg = Default()
	cfg.Server.CredentialEnv = ""
	assert.Empty(t, cfg.ResolveCredential(lookup))
	assert.Empty(t, Default().ResolveCredential(nil))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{
		"debug": "DEBUG", "": "INFO", "INFO": "INFO", "warning": "WARN", "error": "ERROR",
	} {
		lvl, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, lvl.String(), in)
	}
}

func TestControllerConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.URL = "wss://clips.example.com/ws"
	cfg.Server.Keepalive = 10 * time.Second
	cfg.Reconnect.Initial = 2 * time.Second

	cc, err := cfg.ControllerConfig("", "secret", nil, log.NoopLogger{})
	require.NoError(t, err)

	assert.Equal(t, "wss://clips.example.com/ws", cc.URL)
	assert.Equal(t, "secret", cc.Credential)
	assert.Equal(t, 10*time.Second, cc.KeepaliveInterval)
	assert.Equal(t, 2*time.Second, cc.Backoff.Initial)
	assert.Equal(t, 0.2, cc.Backoff.Jitter)
	require.NotNil(t, cc.Dialer)
	require.NotNil(t, cc.Guard)
	assert.True(t, cc.Guard.MayConnect())

	// A discovered endpoint overrides the configured one.
	cc, err = cfg.ControllerConfig("wss://10.0.0.4:8443/ws", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "wss://10.0.0.4:8443/ws", cc.URL)
	assert.True(t, cc.Guard.MayConnect())

	c, err := connection.NewController(cc)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusDisconnected, c.Status())
	require.NoError(t, c.Close())
}

func TestControllerConfigGuard(t *testing.T) {
	t.Run("PlainWebSocketRefused", func(t *testing.T) {
		cfg := Default()
		cfg.Server.URL = "ws://clips.example.com/ws"

		cc, err := cfg.ControllerConfig("", "", nil, nil)
		require.NoError(t, err)
		assert.False(t, cc.Guard.MayConnect())
	})

	t.Run("InsecureRefused", func(t *testing.T) {
		cfg := Default()
		cfg.Server.URL = "wss://clips.example.com/ws"
		cfg.Server.Insecure = true

		cc, err := cfg.ControllerConfig("", "", nil, nil)
		require.NoError(t, err)
		assert.False(t, cc.Guard.MayConnect())
	})

	t.Run("MissingCAFile", func(t *testing.T) {
		cfg := Default()
		cfg.Server.URL = "wss://clips.example.com/ws"
		cfg.Server.CAFile = filepath.Join(t.TempDir(), "missing.pem")

		_, err := cfg.ControllerConfig("", "", nil, nil)
		assert.Error(t, err)
	})
}

func TestBrowserConfig(t *testing.T) {
	cfg := Default()
	cfg.Discovery.Instance = "Desk Server"
	cfg.Discovery.Interface = "en0"

	bc := cfg.BrowserConfig()
	assert.Equal(t, "Desk Server", bc.Instance)
	assert.Equal(t, "en0", bc.Interface)
	assert.Equal(t, 5*time.Second, bc.BrowseTimeout)
}
