package tlspolicy

import (
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Strict verifies chains with crypto/x509.
//
// With no issuers the platform root store is used. Server chains must carry
// ExtKeyUsageServerAuth and client chains ExtKeyUsageClientAuth.
type Strict struct {
	issuers []*x509.Certificate
	roots   *x509.CertPool

	// now overrides the verification time in tests.
	now func() time.Time
}

var _ TrustPolicy = (*Strict)(nil)

// NewStrict returns a Strict policy trusting issuers, or the platform roots
// when issuers is empty.
func NewStrict(issuers ...*x509.Certificate) *Strict {
	s := &Strict{}
	for _, c := range issuers {
		if c != nil {
			s.issuers = append(s.issuers, c)
		}
	}
	// A nil pool means system roots; only pin when something is left.
	if len(s.issuers) > 0 {
		s.roots = x509.NewCertPool()
		for _, c := range s.issuers {
			s.roots.AddCert(c)
		}
	}
	return s
}

// VerifyClientChain verifies chain as a client certificate.
func (s *Strict) VerifyClientChain(chain []*x509.Certificate) error {
	return s.verify(chain, x509.ExtKeyUsageClientAuth)
}

// VerifyServerChain verifies chain as a server certificate. Hostname
// matching is left to the HostnamePolicy.
func (s *Strict) VerifyServerChain(chain []*x509.Certificate) error {
	return s.verify(chain, x509.ExtKeyUsageServerAuth)
}

// AcceptedIssuers returns a copy of the configured issuers. It is empty when
// the platform roots are in use.
func (s *Strict) AcceptedIssuers() []*x509.Certificate {
	out := make([]*x509.Certificate, len(s.issuers))
	copy(out, s.issuers)
	return out
}

func (s *Strict) String() string { return "strict" }

func (s *Strict) verify(chain []*x509.Certificate, usage x509.ExtKeyUsage) error {
	if len(chain) == 0 || chain[0] == nil {
		return ErrEmptyChain
	}

	opts := x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{usage},
	}
	if s.now != nil {
		opts.CurrentTime = s.now()
	}
	for _, c := range chain[1:] {
		if c != nil {
			opts.Intermediates.AddCert(c)
		}
	}

	_, err := chain[0].Verify(opts)
	return err
}

// MatchHostname checks the leaf certificate of the session against the
// dialed hostname.
type MatchHostname struct{}

var _ HostnamePolicy = MatchHostname{}

// VerifyHostname reports whether the leaf certificate is valid for hostname.
func (MatchHostname) VerifyHostname(hostname string, state tls.ConnectionState) bool {
	if hostname == "" || len(state.PeerCertificates) == 0 {
		return false
	}
	return state.PeerCertificates[0].VerifyHostname(hostname) == nil
}

func (MatchHostname) String() string { return "match-hostname" }
