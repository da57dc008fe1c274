package tlspolicy

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/unsafehttp/internal/selfsigned"
)

func TestTrustAll_AcceptsEveryChain(t *testing.T) {
	t.Parallel()

	valid, err := selfsigned.Generate(selfsigned.Options{Hosts: []string{"localhost"}})
	require.NoError(t, err)
	expired, err := selfsigned.Expired("localhost")
	require.NoError(t, err)

	tests := []struct {
		name  string
		chain []*x509.Certificate
	}{
		{"nil chain", nil},
		{"empty chain", []*x509.Certificate{}},
		{"nil leaf", []*x509.Certificate{nil}},
		{"self-signed", []*x509.Certificate{valid.Leaf}},
		{"expired", []*x509.Certificate{expired.Leaf}},
		{"malformed", []*x509.Certificate{{Raw: []byte("not a certificate")}}},
		{"mismatched chain", []*x509.Certificate{valid.Leaf, expired.Leaf}},
	}

	policy := TrustAll{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, policy.VerifyServerChain(tt.chain))
			assert.NoError(t, policy.VerifyClientChain(tt.chain))
		})
	}
}

func TestTrustAll_Properties(t *testing.T) {
	t.Parallel()

	// Property: no byte content in any chain position causes a rejection
	property := func(raws [][]byte) bool {
		chain := make([]*x509.Certificate, len(raws))
		for i, raw := range raws {
			chain[i] = &x509.Certificate{Raw: raw}
		}
		policy := TrustAll{}
		return policy.VerifyServerChain(chain) == nil && policy.VerifyClientChain(chain) == nil
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 1000}))
}

func TestTrustAll_AcceptedIssuersAlwaysEmpty(t *testing.T) {
	t.Parallel()

	policy := TrustAll{}
	first := policy.AcceptedIssuers()
	require.NotNil(t, first)
	assert.Empty(t, first)

	// Mutating a returned slice must not leak into later calls
	_ = append(first, &x509.Certificate{})

	for range 10 {
		issuers := policy.AcceptedIssuers()
		assert.NotNil(t, issuers)
		assert.Empty(t, issuers)
	}
}

func TestAnyHostname_Properties(t *testing.T) {
	t.Parallel()

	leaf, err := selfsigned.Generate(selfsigned.Options{Hosts: []string{"example.com"}})
	require.NoError(t, err)

	// Property: for any hostname and either an empty or populated session, the predicate holds
	property := func(hostname string, withPeer bool) bool {
		state := tls.ConnectionState{}
		if withPeer {
			state.PeerCertificates = []*x509.Certificate{leaf.Leaf}
		}
		return AnyHostname{}.VerifyHostname(hostname, state)
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 1000}))
}

func TestAnyHostname_EdgeCases(t *testing.T) {
	t.Parallel()

	for _, h := range []string{"", "localhost", "*.example.com", "10.0.0.1", "::1", "bad host\x00name"} {
		assert.True(t, AnyHostname{}.VerifyHostname(h, tls.ConnectionState{}), "hostname %q", h)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "trust-all", Name(TrustAll{}))
	assert.Equal(t, "any-hostname", Name(AnyHostname{}))
	assert.Equal(t, "strict", Name(NewStrict()))
	assert.Equal(t, "match-hostname", Name(MatchHostname{}))
	assert.Equal(t, "custom", Name(struct{}{}))
	assert.Equal(t, "custom", Name(nil))
}
