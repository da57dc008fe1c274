// Package unsafehttp builds HTTP clients whose TLS trust decisions come
// from pluggable policies instead of the platform verifier.
//
// The default client trusts every certificate chain and every hostname. It
// exists for talking to development servers, self-signed appliances and
// test fixtures. Do not point it at anything you would not send in
// plaintext.
//
// This package wraps pkg/httpclient, pkg/tlspolicy and pkg/spire, providing
// a config-file-driven approach that requires minimal code.
//
// Quick Start:
//
//	client, err := unsafehttp.NewInsecureClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Get(ctx, "https://self-signed.local:8443/health")
//
// Config file:
//
//	client, shutdown, err := unsafehttp.Client("unsafehttp.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shutdown()
package unsafehttp

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/sufield/unsafehttp/internal/config"
	"github.com/sufield/unsafehttp/internal/debug"
	"github.com/sufield/unsafehttp/pkg/httpclient"
	"github.com/sufield/unsafehttp/pkg/spire"
	"github.com/sufield/unsafehttp/pkg/tlspolicy"
)

// ConfigEnv names the environment variable read by NewClient and Get.
const ConfigEnv = "UNSAFEHTTP_CONFIG"

// resolveConfigPath returns the config file path from UNSAFEHTTP_CONFIG.
//
// It returns an error if the variable is not set so the library never
// silently picks a trust mode.
func resolveConfigPath() (string, error) {
	if path := os.Getenv(ConfigEnv); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("%s environment variable not set; either set %s or call Client() with an explicit config path", ConfigEnv, ConfigEnv)
}

// NewInsecureClient returns a client with trust-all and any-hostname
// policies, 30 second timeouts and the "TLS" protocol.
func NewInsecureClient() (*httpclient.Client, error) {
	return httpclient.NewInsecure()
}

// Client builds a client from the YAML file at configPath.
//
// trust.mode selects the policies:
//   - insecure: trust-all, any-hostname
//   - strict: issuers from trust.ca_file (platform roots when empty), match-hostname
//   - spiffe: SVID verification against SPIRE bundles, any-hostname
//
// Configuration (unsafehttp.yaml):
//
//	client:
//	  protocol: TLS
//	  timeouts:
//	    read: 10s
//	trust:
//	  mode: spiffe
//	  spiffe:
//	    workload_socket: unix:///tmp/spire-agent/public/api.sock
//	    expected_server_trust_domain: example.org
//
// Shutdown semantics:
//   - The shutdown function is safe to call multiple times (idempotent)
//   - It closes idle connections and releases the SPIRE source, if any
//   - Subsequent calls return the result of the first shutdown
func Client(configPath string) (*httpclient.Client, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	settings, err := config.Validate(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid client config: %w", err)
	}

	return clientFromSettings(context.Background(), settings)
}

func clientFromSettings(ctx context.Context, settings config.Settings) (*httpclient.Client, func() error, error) {
	clientCfg := settings.ClientConfig()

	var source *spire.Source
	switch settings.Mode {
	case config.ModeInsecure:
		clientCfg.Trust = tlspolicy.TrustAll{}
		clientCfg.Hostname = tlspolicy.AnyHostname{}

	case config.ModeStrict:
		var issuers []*x509.Certificate
		if settings.CAFile != "" {
			var err error
			issuers, err = config.ReadIssuers(settings.CAFile)
			if err != nil {
				return nil, nil, err
			}
		}
		clientCfg.Trust = tlspolicy.NewStrict(issuers...)
		clientCfg.Hostname = tlspolicy.MatchHostname{}

	case config.ModeSPIFFE:
		var err error
		source, err = spire.NewSource(ctx, spire.Config{
			WorkloadSocket:      settings.SPIFFE.WorkloadSocket,
			InitialFetchTimeout: settings.SPIFFE.InitialFetchTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SPIRE source: %w", err)
		}

		trust, err := spiffeTrust(source, settings.SPIFFE)
		if err != nil {
			return nil, nil, closeOnError(source, err)
		}
		clientCfg.Trust = trust
		clientCfg.Hostname = tlspolicy.AnyHostname{}

	default:
		return nil, nil, fmt.Errorf("unknown trust mode %q", settings.Mode)
	}

	client, err := httpclient.New(clientCfg)
	if err != nil {
		if source != nil {
			return nil, nil, closeOnError(source, err)
		}
		return nil, nil, err
	}

	// Ensure shutdown is only executed once
	var shutdownOnce sync.Once
	var shutdownErr error

	shutdown := func() error {
		shutdownOnce.Do(func() {
			shutdownErr = client.Close()
			if source != nil {
				if err := source.Close(); err != nil && shutdownErr == nil {
					shutdownErr = err
				}
			}
		})
		return shutdownErr
	}

	return client, shutdown, nil
}

func spiffeTrust(source *spire.Source, settings config.SPIFFESettings) (*tlspolicy.SPIFFE, error) {
	x509Source, err := source.X509Source()
	if err != nil {
		return nil, err
	}
	return tlspolicy.NewSPIFFE(x509Source, settings.Authorizer)
}

func closeOnError(source *spire.Source, err error) error {
	if closeErr := source.Close(); closeErr != nil {
		return fmt.Errorf("%w (cleanup error: %v)", err, closeErr)
	}
	return err
}

// NewClient builds a client from the file named by UNSAFEHTTP_CONFIG.
//
// For explicit control, use Client(configPath) directly.
func NewClient() (*httpclient.Client, func() error, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, nil, err
	}
	return Client(path)
}

type bodyCloser struct {
	io.ReadCloser
	cleanup func()
}

func (b *bodyCloser) Close() error {
	err := b.ReadCloser.Close()
	b.cleanup()
	return err
}

// Get performs a one-shot GET with a client built by NewClient.
// Closing the response body releases the client.
func Get(url string) (*http.Response, error) {
	client, shutdown, err := NewClient()
	if err != nil {
		return nil, err
	}

	resp, err := client.Get(context.Background(), url)
	if err != nil {
		if shutdownErr := shutdown(); shutdownErr != nil {
			debug.GetLogger().WithError(shutdownErr).Warn("error during shutdown")
		}
		return nil, err
	}

	// Wrap response body to trigger cleanup on close
	resp.Body = &bodyCloser{
		ReadCloser: resp.Body,
		cleanup: func() {
			if shutdownErr := shutdown(); shutdownErr != nil {
				debug.GetLogger().WithError(shutdownErr).Warn("error during shutdown")
			}
		},
	}

	return resp, nil
}
