package httpclient

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// DefaultProtocol is the protocol used when Config.Protocol is empty.
const DefaultProtocol = "TLS"

// protocolVersions maps a protocol name to the TLS version bounds of the
// secure-transport context. "SSL" is accepted as an alias of "TLS"; no SSL
// version is ever negotiated.
func protocolVersions(name string) (minVersion, maxVersion uint16, err error) {
	switch strings.TrimSpace(name) {
	case "", "TLS", "SSL":
		return tls.VersionTLS12, 0, nil
	case "TLSv1.2":
		return tls.VersionTLS12, tls.VersionTLS12, nil
	case "TLSv1.3":
		return tls.VersionTLS13, tls.VersionTLS13, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, name)
	}
}

// CheckProtocol reports whether name is accepted as Config.Protocol.
func CheckProtocol(name string) error {
	_, _, err := protocolVersions(name)
	return err
}
