package connection

import "time"

// Policy decides whether and when to reconnect.
// It owns the reconnection state of one controller and is never shared.
type Policy struct {
	backoff *Backoff
}

// NewPolicy creates a reconnection policy over the given backoff parameters.
func NewPolicy(cfg BackoffConfig) *Policy {
	return &Policy{backoff: NewBackoffWithConfig(cfg)}
}

// NextDelay returns the jittered wait before the next attempt and doubles the base delay.
func (p *Policy) NextDelay() time.Duration {
	return p.backoff.Next()
}

// OnUsable resets the delay. Call it when a session becomes usable,
// not merely when the transport opens.
func (p *Policy) OnUsable() {
	p.backoff.Reset()
}

// ShouldRetry reports whether a session closed for r should be followed by another attempt.
func (p *Policy) ShouldRetry(r CloseReason) bool {
	return ShouldRetry(r)
}

// Attempts returns the total number of scheduled reconnects.
func (p *Policy) Attempts() uint64 {
	return p.backoff.Attempts()
}

// CurrentDelay returns the base delay the next attempt would use.
func (p *Policy) CurrentDelay() time.Duration {
	return p.backoff.Current()
}
