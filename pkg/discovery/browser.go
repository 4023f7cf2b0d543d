package discovery

import (
	"context"
	"time"
)

// Browser finds push servers.
type Browser interface {
	// Browse reports each push server as it is found. The channel is closed
	// when ctx is cancelled or the browse times out.
	Browse(ctx context.Context) (<-chan *PushService, error)

	// FindFirst returns the first TLS push server found.
	FindFirst(ctx context.Context) (*PushService, error)

	// Stop cancels all active browses.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds a browse when ctx has no deadline.
	// Default: 5 seconds.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string

	// Instance restricts results to one instance name. Empty matches all.
	Instance string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}
