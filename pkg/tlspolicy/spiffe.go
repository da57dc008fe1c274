package tlspolicy

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/spiffe/go-spiffe/v2/bundle/x509bundle"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/svid/x509svid"
)

// SPIFFE verifies chains as X.509 SVIDs against a trust bundle source and
// then applies an authorizer to the peer's SPIFFE ID.
//
// SPIFFE authenticates the workload identity, not a DNS name, so it is
// normally paired with AnyHostname.
type SPIFFE struct {
	bundles    x509bundle.Source
	authorizer tlsconfig.Authorizer
}

var _ TrustPolicy = (*SPIFFE)(nil)

// NewSPIFFE returns a SPIFFE trust policy. Both arguments are required.
func NewSPIFFE(bundles x509bundle.Source, authorizer tlsconfig.Authorizer) (*SPIFFE, error) {
	if bundles == nil {
		return nil, errors.New("bundle source cannot be nil")
	}
	if authorizer == nil {
		return nil, errors.New("authorizer cannot be nil")
	}
	return &SPIFFE{bundles: bundles, authorizer: authorizer}, nil
}

// VerifyClientChain verifies chain as an SVID and authorizes its ID.
func (s *SPIFFE) VerifyClientChain(chain []*x509.Certificate) error {
	return s.verify(chain)
}

// VerifyServerChain verifies chain as an SVID and authorizes its ID.
func (s *SPIFFE) VerifyServerChain(chain []*x509.Certificate) error {
	return s.verify(chain)
}

// AcceptedIssuers returns an empty slice; the authorities depend on the
// trust domain of the presented SVID and are resolved per handshake.
func (s *SPIFFE) AcceptedIssuers() []*x509.Certificate { return []*x509.Certificate{} }

func (s *SPIFFE) String() string { return "spiffe" }

func (s *SPIFFE) verify(chain []*x509.Certificate) error {
	if len(chain) == 0 || chain[0] == nil {
		return ErrEmptyChain
	}

	id, verified, err := x509svid.Verify(chain, s.bundles)
	if err != nil {
		return fmt.Errorf("SVID verification failed: %w", err)
	}
	if err := s.authorizer(id, verified); err != nil {
		return fmt.Errorf("SPIFFE ID %q not authorized: %w", id, err)
	}
	return nil
}
