package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds configuration for push-channel TLS connections.
type TLSConfig struct {
	// RootCAs is the pool of trusted CA certificates.
	// Nil means the system pool.
	RootCAs *x509.CertPool

	// ServerName overrides the name used for certificate verification.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// Only for testing. A guard built with NewSecureGuard refuses such configs.
	InsecureSkipVerify bool

	// VerifyPeerCertificate is an optional callback for custom certificate
	// verification, such as a pinned fingerprint.
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
}

// NewClientTLSConfig creates a TLS configuration for a push-channel client.
func NewClientTLSConfig(cfg *TLSConfig) *tls.Config {
	if cfg == nil {
		cfg = &TLSConfig{}
	}
	return &tls.Config{
		MinVersion: tls.VersionTLS12,

		RootCAs:    cfg.RootCAs,
		ServerName: cfg.ServerName,

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		VerifyPeerCertificate: cfg.VerifyPeerCertificate,
		InsecureSkipVerify:    cfg.InsecureSkipVerify,
	}
}

// LoadCAFile reads PEM certificates from path into a new pool.
func LoadCAFile(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
