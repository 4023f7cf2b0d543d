// Package connection owns the lifecycle of a clipsync push channel.
//
// A Controller opens at most one channel session at a time, authenticates it
// when a credential is configured, watches it for liveness and dispatches the
// notifications it carries. When a session ends, its close reason decides
// whether the controller waits out a backoff delay and opens a new one or
// stays idle.
//
// # States
//
//	Idle -> Opening -> Authenticating -> Usable -> Closing -> Idle
//	                                                  \-> Backoff -> Opening
//
// Authenticating is skipped when no credential is configured. Every input to
// the state machine (dial results, inbound frames, keep-alives, read failures,
// watchdog and backoff timers, caller commands) is delivered as an event to a
// single goroutine, so transitions never interleave.
//
// # Reconnection
//
// Delays start at 1 second and double after each failed attempt up to 30
// seconds. Each wait is spread by up to 20% in either direction:
//
//	actual_delay = base_delay * (1 + uniform(-0.2, 0.2))
//
// The delay returns to 1 second only when a session becomes usable, meaning
// after auth_success or, without a credential, right after the transport opens.
// Sessions closed as normal or auth-rejected are never retried.
//
// # Callbacks
//
// Handlers run on the controller goroutine, one at a time and in wire order.
// A handler may call Connect, Disconnect or ReconnectNow; those only enqueue
// commands. Once Disconnect returns no further handler is started.
package connection
