// Package transport provides the push-channel transport for clipsync clients.
//
// The transport layer handles:
//   - WebSocket connections over verified TLS (wss)
//   - The transport guard that refuses to open anything else
//   - Surfacing server keep-alives (WebSocket pings) to the liveness watchdog
//   - Classifying closures by close code
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      JSON text frames          │
//	├────────────────────────────────┤
//	│         WebSocket              │
//	├────────────────────────────────┤
//	│      TLS 1.2+ (verified)       │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Certificate pinning is an adjacent trust boundary. Callers that pin supply a
// VerifyPeerCertificate callback through TLSConfig and a matching Guard.
package transport
