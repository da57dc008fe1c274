package config

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sufield/unsafehttp/pkg/httpclient"
)

// ClientConfig returns an httpclient.Config carrying every setting except
// the trust and hostname policies, which depend on Mode.
func (s Settings) ClientConfig() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeouts = s.Timeouts
	cfg.Protocol = s.Protocol
	cfg.UserAgent = s.UserAgent
	cfg.LogLevel = s.LogLevel
	cfg.Metrics = s.Metrics
	return cfg
}

// ReadIssuers parses every CERTIFICATE block of a PEM file.
func ReadIssuers(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - CA file path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate in %s: %w", path, err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, errors.New("no certificates found in CA file")
	}
	return certs, nil
}
