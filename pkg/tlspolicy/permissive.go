package tlspolicy

import (
	"crypto/tls"
	"crypto/x509"
)

// TrustAll accepts every certificate chain, including nil, expired,
// self-signed and unparseable ones. It performs no authentication at all.
type TrustAll struct{}

var _ TrustPolicy = TrustAll{}

// VerifyClientChain always returns nil.
func (TrustAll) VerifyClientChain([]*x509.Certificate) error { return nil }

// VerifyServerChain always returns nil.
func (TrustAll) VerifyServerChain([]*x509.Certificate) error { return nil }

// AcceptedIssuers returns a new empty slice on every call.
func (TrustAll) AcceptedIssuers() []*x509.Certificate { return []*x509.Certificate{} }

func (TrustAll) String() string { return "trust-all" }

// AnyHostname reports every hostname as matching.
type AnyHostname struct{}

var _ HostnamePolicy = AnyHostname{}

// VerifyHostname always returns true.
func (AnyHostname) VerifyHostname(string, tls.ConnectionState) bool { return true }

func (AnyHostname) String() string { return "any-hostname" }
