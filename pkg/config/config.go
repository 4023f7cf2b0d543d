package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clipsync/clipsync-go/pkg/connection"
	"github.com/clipsync/clipsync-go/pkg/discovery"
	"github.com/clipsync/clipsync-go/pkg/liveness"
	"github.com/clipsync/clipsync-go/pkg/log"
	"github.com/clipsync/clipsync-go/pkg/transport"
)

// DefaultCredentialEnv is consulted when no credential is configured.
const DefaultCredentialEnv = "CLIPSYNC_TOKEN"

// Validation errors.
var (
	ErrInvalidURL       = errors.New("server url must be ws:// or wss://")
	ErrNoEndpoint       = errors.New("no server url and discovery disabled")
	ErrInvalidBackoff   = errors.New("invalid reconnect settings")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidRetention = errors.New("journal retention must not be negative")
)

// Config is the root of the YAML document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Journal   JournalConfig   `yaml:"journal"`
	Logging   LoggingConfig   `yaml:"logging"`

	// StatePath is where the last reached endpoint is remembered.
	StatePath string `yaml:"state_path"`
}

// ServerConfig describes the push channel.
type ServerConfig struct {
	URL           string        `yaml:"url"`
	Credential    string        `yaml:"credential"`
	CredentialEnv string        `yaml:"credential_env"`
	CAFile        string        `yaml:"ca_file"`
	ServerName    string        `yaml:"server_name"`
	Insecure      bool          `yaml:"insecure"`
	Keepalive     time.Duration `yaml:"keepalive_interval"`
	AuthTimeout   time.Duration `yaml:"auth_timeout"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
}

// ReconnectConfig tunes the backoff schedule.
type ReconnectConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"`
}

// DiscoveryConfig controls mDNS lookup of the server.
type DiscoveryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Instance  string        `yaml:"instance"`
	Interface string        `yaml:"interface"`
	Timeout   time.Duration `yaml:"timeout"`
}

// JournalConfig controls the notification history database.
type JournalConfig struct {
	// Path is the SQLite file. Empty disables the journal.
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig controls operational and protocol logs.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ProtocolLog string `yaml:"protocol_log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	backoff := connection.DefaultBackoffConfig()
	return &Config{
		Server: ServerConfig{
			CredentialEnv: DefaultCredentialEnv,
			Keepalive:     liveness.DefaultKeepaliveInterval,
			AuthTimeout:   connection.DefaultAuthTimeout,
			DialTimeout:   connection.DefaultDialTimeout,
		},
		Reconnect: ReconnectConfig{
			Initial:    backoff.Initial,
			Max:        backoff.Max,
			Multiplier: backoff.Multiplier,
			Jitter:     backoff.Jitter,
		},
		Discovery: DiscoveryConfig{
			Timeout: discovery.BrowseTimeout,
		},
		Journal: JournalConfig{
			Retention: 30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a controller.
func (c *Config) Validate() error {
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidURL, c.Server.URL)
		}
	} else if !c.Discovery.Enabled {
		return ErrNoEndpoint
	}

	r := c.Reconnect
	if r.Initial <= 0 || r.Max < r.Initial || r.Multiplier <= 1 || r.Jitter < 0 || r.Jitter >= 1 {
		return fmt.Errorf("%w: initial=%s max=%s multiplier=%g jitter=%g",
			ErrInvalidBackoff, r.Initial, r.Max, r.Multiplier, r.Jitter)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Journal.Retention < 0 {
		return ErrInvalidRetention
	}
	return nil
}

// ResolveCredential returns the configured credential, falling back to the
// environment variable named by CredentialEnv.
func (c *Config) ResolveCredential(lookup func(string) (string, bool)) string {
	if c.Server.Credential != "" {
		return c.Server.Credential
	}
	if c.Server.CredentialEnv == "" || lookup == nil {
		return ""
	}
	v, _ := lookup(c.Server.CredentialEnv)
	return strings.TrimSpace(v)
}

// TLSConfig builds the client TLS settings from the server section.
func (c *Config) TLSConfig() (*transport.TLSConfig, error) {
	tc := &transport.TLSConfig{
		ServerName:         c.Server.ServerName,
		InsecureSkipVerify: c.Server.Insecure,
	}
	if c.Server.CAFile != "" {
		pool, err := transport.LoadCAFile(c.Server.CAFile)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = pool
	}
	return tc, nil
}

// BrowserConfig derives the discovery browser settings.
func (c *Config) BrowserConfig() discovery.BrowserConfig {
	bc := discovery.DefaultBrowserConfig()
	if c.Discovery.Timeout > 0 {
		bc.BrowseTimeout = c.Discovery.Timeout
	}
	bc.Interface = c.Discovery.Interface
	bc.Instance = c.Discovery.Instance
	return bc
}

// ControllerConfig derives a connection.Config for endpoint. An empty endpoint
// uses Server.URL. The guard only admits verified TLS, so an insecure server
// section yields a controller whose status stays unavailable.
func (c *Config) ControllerConfig(endpoint, credential string, logger *slog.Logger, proto log.Logger) (connection.Config, error) {
	if endpoint == "" {
		endpoint = c.Server.URL
	}
	tc, err := c.TLSConfig()
	if err != nil {
		return connection.Config{}, err
	}
	tlsConf := transport.NewClientTLSConfig(tc)

	return connection.Config{
		URL:               endpoint,
		Credential:        credential,
		Dialer:            transport.NewWSDialer(transport.WSDialerConfig{TLSConfig: tlsConf}),
		Guard:             transport.NewSecureGuard(endpoint, tlsConf),
		KeepaliveInterval: c.Server.Keepalive,
		AuthTimeout:       c.Server.AuthTimeout,
		DialTimeout:       c.Server.DialTimeout,
		Backoff: connection.BackoffConfig{
			Initial:    c.Reconnect.Initial,
			Max:        c.Reconnect.Max,
			Multiplier: c.Reconnect.Multiplier,
			Jitter:     c.Reconnect.Jitter,
		},
		Logger:         logger,
		ProtocolLogger: proto,
	}, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
}

// expandPaths resolves a leading ~ in file settings.
func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Server.CAFile, &c.Journal.Path, &c.Logging.ProtocolLog, &c.StatePath} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
