// Package selfsigned generates throwaway certificates for the serve command
// and for tests: self-signed leaves, expired leaves and small private CAs.
package selfsigned

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"time"
)

// DefaultValidity is the lifetime of certificates when Options.NotAfter is zero.
const DefaultValidity = 24 * time.Hour

// Options describes a leaf certificate.
type Options struct {
	// Hosts are DNS names or IP addresses placed in the SAN extension.
	Hosts []string

	// NotBefore defaults to one minute ago.
	NotBefore time.Time

	// NotAfter defaults to NotBefore + DefaultValidity.
	NotAfter time.Time

	// URIs are placed in the SAN extension, e.g. a SPIFFE ID.
	URIs []string

	// ClientAuth adds ExtKeyUsageClientAuth next to ServerAuth.
	ClientAuth bool
}

// Authority is a private CA able to issue leaves.
type Authority struct {
	Cert *x509.Certificate
	Key  crypto.Signer
}

// NewAuthority creates a self-signed CA with the given common name.
func NewAuthority(commonName string) (*Authority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(DefaultValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	return &Authority{Cert: cert, Key: key}, nil
}

// Issue signs a leaf certificate for opts.
func (a *Authority) Issue(opts Options) (tls.Certificate, error) {
	if a == nil || a.Cert == nil || a.Key == nil {
		return tls.Certificate{}, errors.New("authority is not initialized")
	}
	return issue(opts, a.Cert, a.Key)
}

// Generate returns a self-signed leaf certificate for opts.
func Generate(opts Options) (tls.Certificate, error) {
	return issue(opts, nil, nil)
}

// Expired returns a self-signed leaf for hosts that expired an hour ago.
func Expired(hosts ...string) (tls.Certificate, error) {
	now := time.Now()
	return Generate(Options{
		Hosts:     hosts,
		NotBefore: now.Add(-48 * time.Hour),
		NotAfter:  now.Add(-time.Hour),
	})
}

// EncodePEM returns the PEM encoding of cert's DER blocks.
func EncodePEM(cert tls.Certificate) []byte {
	var out []byte
	for _, der := range cert.Certificate {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	return out
}

func issue(opts Options, parent *x509.Certificate, parentKey crypto.Signer) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := serialNumber()
	if err != nil {
		return tls.Certificate{}, err
	}

	notBefore := opts.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Minute)
	}
	notAfter := opts.NotAfter
	if notAfter.IsZero() {
		notAfter = notBefore.Add(DefaultValidity)
	}

	usages := []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	if opts.ClientAuth {
		usages = append(usages, x509.ExtKeyUsageClientAuth)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName(opts.Hosts)},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           usages,
		BasicConstraintsValid: true,
	}
	for _, h := range opts.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	for _, raw := range opts.URIs {
		u, err := url.Parse(raw)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("invalid URI SAN %q: %w", raw, err)
		}
		tmpl.URIs = append(tmpl.URIs, u)
	}

	signer := crypto.Signer(key)
	if parent == nil {
		parent = tmpl
	} else {
		signer = parentKey
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, key.Public(), signer)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

func serialNumber() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}

func commonName(hosts []string) string {
	if len(hosts) == 0 {
		return "unsafehttp self-signed"
	}
	return hosts[0]
}
