package tlspolicy

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

var (
	// ErrEmptyChain is returned by verifying policies when no certificate was presented.
	ErrEmptyChain = errors.New("empty certificate chain")

	// ErrCertificateRejected wraps every chain rejection surfaced through a tls.Config hook.
	ErrCertificateRejected = errors.New("certificate chain rejected")

	// ErrHostnameMismatch is returned when the hostname policy refuses the session.
	ErrHostnameMismatch = errors.New("hostname does not match certificate")
)

// TrustPolicy decides whether a certificate chain presented during a TLS
// handshake is acceptable. chain[0] is the leaf.
type TrustPolicy interface {
	// VerifyClientChain validates a chain presented by a client.
	VerifyClientChain(chain []*x509.Certificate) error

	// VerifyServerChain validates a chain presented by a server.
	VerifyServerChain(chain []*x509.Certificate) error

	// AcceptedIssuers lists the issuing certificates the policy trusts.
	AcceptedIssuers() []*x509.Certificate
}

// HostnamePolicy decides whether the negotiated session belongs to hostname.
type HostnamePolicy interface {
	VerifyHostname(hostname string, state tls.ConnectionState) bool
}

// Name returns the policy name used in logs and metric labels.
func Name(policy any) string {
	if s, ok := policy.(fmt.Stringer); ok {
		return s.String()
	}
	return "custom"
}

// VerifyServerConnection returns a tls.Config.VerifyConnection hook for
// clients. The trust policy runs first, then the hostname policy against
// serverName.
//
// serverName is the host the client dialed. When empty, state.ServerName is
// used, which is also empty for IP address targets because no SNI is sent.
func VerifyServerConnection(trust TrustPolicy, hostname HostnamePolicy, serverName string) func(tls.ConnectionState) error {
	return func(state tls.ConnectionState) error {
		if err := trust.VerifyServerChain(state.PeerCertificates); err != nil {
			return fmt.Errorf("%w: %w", ErrCertificateRejected, err)
		}
		host := serverName
		if host == "" {
			host = state.ServerName
		}
		if !hostname.VerifyHostname(host, state) {
			return fmt.Errorf("%w: %q", ErrHostnameMismatch, host)
		}
		return nil
	}
}

// VerifyClientConnection returns a tls.Config.VerifyConnection hook for
// servers requesting client certificates.
func VerifyClientConnection(trust TrustPolicy) func(tls.ConnectionState) error {
	return func(state tls.ConnectionState) error {
		if err := trust.VerifyClientChain(state.PeerCertificates); err != nil {
			return fmt.Errorf("%w: %w", ErrCertificateRejected, err)
		}
		return nil
	}
}
