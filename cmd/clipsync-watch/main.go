// Command clipsync-watch follows a clipboard-sync server's push channel.
//
// It connects, authenticates, and prints every clip notification as it
// arrives. Notifications can be journaled to SQLite and the raw protocol
// captured to a .clog file for clipsync-log.
//
// Usage:
//
//	clipsync-watch [flags]
//
// Flags:
//
//	-config string        YAML configuration file
//	-url string           Push-channel URL (overrides config)
//	-discover             Find the server with mDNS when no URL is set
//	-instance string      mDNS instance name to prefer
//	-ca-file string       PEM file with trusted CA certificates
//	-journal string       SQLite notification journal path
//	-state string         Client state file path
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this .clog file
//	-interactive          Start the interactive console
//
// The credential is read from the config file or the CLIPSYNC_TOKEN
// environment variable.
//
// Examples:
//
//	# Follow a known server
//	CLIPSYNC_TOKEN=... clipsync-watch -url wss://clips.example.com/ws
//
//	# Find the server on the LAN and keep a journal
//	clipsync-watch -discover -journal ~/.clipsync/journal.db -interactive
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipsync/clipsync-go/cmd/clipsync-watch/interactive"
	"github.com/clipsync/clipsync-go/pkg/config"
	"github.com/clipsync/clipsync-go/pkg/connection"
	"github.com/clipsync/clipsync-go/pkg/discovery"
	"github.com/clipsync/clipsync-go/pkg/journal"
	"github.com/clipsync/clipsync-go/pkg/log"
	"github.com/clipsync/clipsync-go/pkg/persistence"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile  string
	URL         string
	Discover    bool
	Instance    string
	CAFile      string
	Journal     string
	StatePath   string
	LogLevel    string
	ProtocolLog string
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "YAML configuration file")
	flag.StringVar(&flags.URL, "url", "", "Push-channel URL (overrides config)")
	flag.BoolVar(&flags.Discover, "discover", false, "Find the server with mDNS when no URL is set")
	flag.StringVar(&flags.Instance, "instance", "", "mDNS instance name to prefer")
	flag.StringVar(&flags.CAFile, "ca-file", "", "PEM file with trusted CA certificates")
	flag.StringVar(&flags.Journal, "journal", "", "SQLite notification journal path")
	flag.StringVar(&flags.StatePath, "state", "", "Client state file path")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write protocol events to this .clog file")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the interactive console")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags)
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var console *interactive.Console
	var out io.Writer = os.Stdout
	var errOut io.Writer = os.Stderr
	if flags.Interactive {
		console, err = interactive.New()
		if err != nil {
			stdlog.Fatalf("Failed to start console: %v", err)
		}
		out = console.Stdout()
		errOut = console.Stderr()
	}

	logger := setupLogging(cfg.Logging, errOut)

	var protoLogger log.Tee
	if cfg.Logging.ProtocolLog != "" {
		capture, err := log.OpenCapture(cfg.Logging.ProtocolLog)
		if err != nil {
			stdlog.Fatalf("Failed to open protocol log: %v", err)
		}
		defer func() {
			if err := capture.Close(); err != nil {
				logger.Error("Protocol log incomplete", "path", capture.Path(), "error", err)
				return
			}
			logger.Info("Protocol log closed", "path", capture.Path(), "events", capture.Written())
		}()
		protoLogger = append(protoLogger, capture)
		logger.Info("Protocol logging enabled", "path", cfg.Logging.ProtocolLog)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		protoLogger = append(protoLogger, log.NewSlogAdapter(logger.With("component", "protocol")))
	}

	var store *persistence.ClientStateStore
	var remembered *persistence.ClientState
	if cfg.StatePath != "" {
		store = persistence.NewClientStateStore(cfg.StatePath)
		if remembered, err = store.Load(); err != nil {
			logger.Warn("Ignoring unreadable state file", "path", cfg.StatePath, "error", err)
			remembered = nil
		}
	}

	var jrnl *journal.Store
	if cfg.Journal.Path != "" {
		jrnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			stdlog.Fatalf("Failed to open journal: %v", err)
		}
		defer jrnl.Close()
		if cfg.Journal.Retention > 0 {
			if n, err := jrnl.Prune(time.Now().Add(-cfg.Journal.Retention)); err != nil {
				logger.Warn("Journal prune failed", "error", err)
			} else if n > 0 {
				logger.Info("Pruned journal", "removed", n)
			}
		}
	}

	var browser discovery.Browser
	if cfg.Discovery.Enabled {
		browser = discovery.NewMDNSBrowser(cfg.BrowserConfig())
		defer browser.Stop()
	}

	endpoint, err := resolveEndpoint(ctx, cfg, browser, remembered, logger)
	if err != nil {
		stdlog.Fatalf("No push channel: %v", err)
	}

	credential := cfg.ResolveCredential(os.LookupEnv)
	if credential == "" {
		logger.Warn("No credential configured; connecting without authentication")
	}

	ccfg, err := cfg.ControllerConfig(endpoint.URL, credential, logger, protoLogger)
	if err != nil {
		stdlog.Fatalf("Invalid TLS settings: %v", err)
	}

	ctrl, err := connection.NewController(ccfg)
	if err != nil {
		stdlog.Fatalf("Failed to create controller: %v", err)
	}
	defer ctrl.Close()

	watcher := NewWatcher(out, logger)
	watcher.Journal = jrnl
	watcher.State = store
	watcher.Endpoint = endpoint
	watcher.Attach(ctrl)

	if err := ctrl.Connect(); err != nil {
		stdlog.Fatalf("Connect failed: %v", err)
	}
	logger.Info("Watching", "url", endpoint.URL, "status", ctrl.Status())

	if console != nil {
		console.Client = ctrl
		if jrnl != nil {
			console.History = jrnl
		}
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal", "signal", sig)
	case <-ctx.Done():
	}

	ctrl.Disconnect()
	fmt.Fprintln(out, "Goodbye!")
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(f Flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.URL != "" {
		cfg.Server.URL = f.URL
	}
	if f.Discover {
		cfg.Discovery.Enabled = true
	}
	if f.Instance != "" {
		cfg.Discovery.Instance = f.Instance
	}
	if f.CAFile != "" {
		cfg.Server.CAFile = f.CAFile
	}
	if f.Journal != "" {
		cfg.Journal.Path = f.Journal
	}
	if f.StatePath != "" {
		cfg.StatePath = f.StatePath
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.ProtocolLog != "" {
		cfg.Logging.ProtocolLog = f.ProtocolLog
	}

	// A remembered endpoint can stand in for a missing URL.
	if err := cfg.Validate(); err != nil && !(errors.Is(err, config.ErrNoEndpoint) && cfg.StatePath != "") {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Endpoint is the push channel the watcher follows.
type Endpoint struct {
	URL      string
	Instance string
}

var errNoEndpoint = errors.New("no server url configured or discovered")

// resolveEndpoint picks the push channel: the configured URL first, then a
// discovered server, then the endpoint remembered from the last run.
func resolveEndpoint(ctx context.Context, cfg *config.Config, browser discovery.Browser, remembered *persistence.ClientState, logger *slog.Logger) (Endpoint, error) {
	if cfg.Server.URL != "" {
		return Endpoint{URL: cfg.Server.URL}, nil
	}

	if browser != nil {
		svc, err := browser.FindFirst(ctx)
		if err == nil {
			u, err := svc.URL()
			if err == nil {
				logger.Info("Discovered server", "service", svc.String(), "url", u)
				return Endpoint{URL: u, Instance: svc.InstanceName}, nil
			}
			logger.Warn("Discovered server unusable", "service", svc.String(), "error", err)
		} else {
			logger.Warn("Discovery failed", "error", err)
		}
	}

	if remembered != nil && remembered.Endpoint != "" {
		if remembered.AuthRejected {
			logger.Warn("Remembered server rejected the credential last time", "url", remembered.Endpoint)
		}
		logger.Info("Using remembered server", "url", remembered.Endpoint)
		return Endpoint{URL: remembered.Endpoint, Instance: remembered.Instance}, nil
	}

	return Endpoint{}, errNoEndpoint
}
