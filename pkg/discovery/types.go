package discovery

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DNS-SD constants.
const (
	// ServiceType is the DNS-SD service type of push servers.
	ServiceType = "_clipsync._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPath is the push-channel path when the TXT record has none.
	DefaultPath = "/ws"

	// ProtocolVersion is the push protocol version this client speaks.
	ProtocolVersion = 1

	// BrowseTimeout is the default duration of a browse.
	BrowseTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeyPath    = "path"
	TXTKeyTLS     = "tls"
	TXTKeyVersion = "ver"
)

// Discovery errors.
var (
	ErrNotFound           = errors.New("discovery: no push server found")
	ErrInsecureService    = errors.New("discovery: service does not offer TLS")
	ErrNoAddress          = errors.New("discovery: service has no usable address")
	ErrUnsupportedVersion = errors.New("discovery: unsupported protocol version")
	ErrInvalidTXT         = errors.New("discovery: invalid TXT record")
)

// ServerInfo is what a push server advertises in its TXT records.
type ServerInfo struct {
	Path    string
	TLS     bool
	Version int
}

// PushService is a push server found on the network.
type PushService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	ServerInfo
}

// URL returns the wss:// endpoint of the service. The host name is preferred
// over a raw address so the server certificate can be verified.
func (s *PushService) URL() (string, error) {
	if !s.TLS {
		return "", fmt.Errorf("%w: %s", ErrInsecureService, s.InstanceName)
	}
	if s.Version > ProtocolVersion {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}

	host := strings.TrimSuffix(s.Host, ".")
	if host == "" && len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	if host == "" {
		return "", ErrNoAddress
	}

	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{
		Scheme: "wss",
		Host:   net.JoinHostPort(host, strconv.Itoa(int(s.Port))),
		Path:   path,
	}
	return u.String(), nil
}

// String returns a one-line description for listings.
func (s *PushService) String() string {
	security := "tls"
	if !s.TLS {
		security = "plain"
	}
	return fmt.Sprintf("%s (%s:%d, %s, v%d)", s.InstanceName, strings.TrimSuffix(s.Host, "."), s.Port, security, s.Version)
}
