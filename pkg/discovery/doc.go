// Package discovery finds clipsync push servers on the local network.
//
// Servers advertise the DNS-SD service type _clipsync._tcp. The instance
// name is the user-visible server name. TXT records carry:
//
//   - path: the push-channel path on the server (default /ws)
//   - tls:  "1" when the endpoint is served over TLS
//   - ver:  the push protocol version
//
// Only TLS endpoints are turned into URLs. A plain service is still reported
// so tools can tell the user why it was skipped.
package discovery
