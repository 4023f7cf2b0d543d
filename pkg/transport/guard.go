package transport

import (
	"crypto/tls"
	"net/url"
	"strings"
)

// GuardFunc adapts a function to the Guard interface.
type GuardFunc func() bool

// MayConnect calls f.
func (f GuardFunc) MayConnect() bool { return f() }

// AllowAll is a Guard that never refuses. Only for tests against in-memory dialers.
var AllowAll Guard = GuardFunc(func() bool { return true })

// SecureGuard permits connections only to wss:// endpoints whose TLS
// configuration verifies the server certificate.
type SecureGuard struct {
	rawURL string
	tls    *tls.Config
}

// NewSecureGuard creates a guard for the given endpoint and TLS configuration.
// A nil TLS config means the system defaults, which verify.
func NewSecureGuard(rawURL string, tlsConf *tls.Config) *SecureGuard {
	return &SecureGuard{rawURL: rawURL, tls: tlsConf}
}

// MayConnect reports whether the endpoint is reached over a verified-secure transport.
func (g *SecureGuard) MayConnect() bool {
	return IsVerifiedSecure(g.rawURL, g.tls)
}

// IsVerifiedSecure reports whether rawURL uses wss and tlsConf keeps verification on.
func IsVerifiedSecure(rawURL string, tlsConf *tls.Config) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if !strings.EqualFold(u.Scheme, "wss") {
		return false
	}
	if tlsConf != nil && tlsConf.InsecureSkipVerify && tlsConf.VerifyPeerCertificate == nil {
		return false
	}
	return true
}

// AllGuards combines guards; the result permits a connection only if all do.
func AllGuards(guards ...Guard) Guard {
	return GuardFunc(func() bool {
		for _, g := range guards {
			if g != nil && !g.MayConnect() {
				return false
			}
		}
		return true
	})
}

var _ Guard = (*SecureGuard)(nil)
