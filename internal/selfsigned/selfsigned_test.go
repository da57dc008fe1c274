package selfsigned

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_SelfSigned(t *testing.T) {
	cert, err := Generate(Options{Hosts: []string{"localhost", "127.0.0.1"}})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)

	assert.Equal(t, []string{"localhost"}, cert.Leaf.DNSNames)
	require.Len(t, cert.Leaf.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.Leaf.IPAddresses[0].String())
	assert.Equal(t, cert.Leaf.Subject.String(), cert.Leaf.Issuer.String())
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, cert.Leaf.ExtKeyUsage)
}

func TestGenerate_ClientAuth(t *testing.T) {
	cert, err := Generate(Options{Hosts: []string{"client"}, ClientAuth: true})
	require.NoError(t, err)
	assert.Contains(t, cert.Leaf.ExtKeyUsage, x509.ExtKeyUsageClientAuth)
}

func TestExpired(t *testing.T) {
	cert, err := Expired("localhost")
	require.NoError(t, err)
	assert.True(t, cert.Leaf.NotAfter.Before(time.Now()))
}

func TestAuthority_Issue(t *testing.T) {
	ca, err := NewAuthority("test CA")
	require.NoError(t, err)
	assert.True(t, ca.Cert.IsCA)

	leaf, err := ca.Issue(Options{Hosts: []string{"api.internal"}})
	require.NoError(t, err)

	roots := x509.NewCertPool()
	roots.AddCert(ca.Cert)
	_, err = leaf.Leaf.Verify(x509.VerifyOptions{
		DNSName: "api.internal",
		Roots:   roots,
	})
	assert.NoError(t, err)
}

func TestAuthority_IssueUninitialized(t *testing.T) {
	var ca *Authority
	_, err := ca.Issue(Options{})
	assert.Error(t, err)
}

func TestEncodePEM(t *testing.T) {
	cert, err := Generate(Options{Hosts: []string{"localhost"}})
	require.NoError(t, err)

	block, rest := pem.Decode(EncodePEM(cert))
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)
	assert.Empty(t, rest)
	assert.Equal(t, cert.Certificate[0], block.Bytes)
}

func TestGenerate_URIs(t *testing.T) {
	cert, err := Generate(Options{URIs: []string{"spiffe://example.org/api"}})
	require.NoError(t, err)
	require.Len(t, cert.Leaf.URIs, 1)
	assert.Equal(t, "spiffe://example.org/api", cert.Leaf.URIs[0].String())
}
