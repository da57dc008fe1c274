package httpclient

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sufield/unsafehttp/internal/assert"
	"github.com/sufield/unsafehttp/internal/debug"
	"github.com/sufield/unsafehttp/internal/metrics"
	"github.com/sufield/unsafehttp/pkg/tlspolicy"
)

// Client is an HTTP client whose TLS verification is delegated to the
// trust and hostname policies it was built with. Its configuration is
// immutable.
type Client struct {
	client    *http.Client
	transport *http.Transport
	tlsConfig *tls.Config
	timeouts  Timeouts
	trust     tlspolicy.TrustPolicy
	hostname  tlspolicy.HostnamePolicy
}

// New builds a Client from cfg. No network I/O happens here.
//
// Every error is a *ConstructionError wrapping one of ErrMissingTrustPolicy,
// ErrMissingHostnamePolicy, ErrInvalidTimeout, ErrUnsupportedProtocol or
// ErrRandomSource.
func New(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = debug.GetLogger()
	}

	c, err := build(cfg, logger)
	if err != nil {
		metrics.ConstructionFailuresTotal.Inc()
		logger.WithError(err).Debug("HTTP client construction failed")
		return nil, constructionError(err)
	}

	trustName, hostnameName := tlspolicy.Name(c.trust), tlspolicy.Name(c.hostname)
	metrics.ClientsConstructedTotal.WithLabelValues(trustName, hostnameName).Inc()

	fields := logrus.Fields{"trust": trustName, "hostname": hostnameName}
	if _, ok := c.trust.(tlspolicy.TrustAll); ok {
		logger.WithFields(fields).Warn("TLS certificate verification is disabled for this client")
	} else {
		logger.WithFields(fields).Debug("HTTP client constructed")
	}

	return c, nil
}

// NewInsecure builds a client that accepts any certificate chain and any
// hostname, with all four timeouts at DefaultTimeout.
func NewInsecure() (*Client, error) {
	return New(InsecureConfig())
}

func build(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if isNil(cfg.Trust) {
		return nil, ErrMissingTrustPolicy
	}
	if isNil(cfg.Hostname) {
		return nil, ErrMissingHostnamePolicy
	}
	if err := cfg.Timeouts.validate(); err != nil {
		return nil, err
	}

	tlsCfg, err := newTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	sockets := &socketFactory{
		dialer: &net.Dialer{
			Timeout:   cfg.Timeouts.Connect,
			KeepAlive: 30 * time.Second,
		},
		tlsConfig:        tlsCfg,
		trust:            cfg.Trust,
		hostname:         cfg.Hostname,
		handshakeTimeout: cfg.Timeouts.Connect,
		readTimeout:      cfg.Timeouts.Read,
		writeTimeout:     cfg.Timeouts.Write,
	}

	transport := &http.Transport{
		DialContext:           sockets.DialContext,
		DialTLSContext:        sockets.DialTLSContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   cfg.Timeouts.Connect,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ExpectContinueTimeout: time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.LogLevel > LogNone {
		rt = &loggingRoundTripper{next: rt, level: cfg.LogLevel, logger: logger}
	}
	if cfg.UserAgent != "" {
		rt = &userAgentRoundTripper{next: rt, userAgent: cfg.UserAgent}
	}
	if cfg.Metrics {
		rt = metrics.InstrumentRoundTripper(tlspolicy.Name(cfg.Trust), rt)
	}

	assert.Invariant(tlsCfg.InsecureSkipVerify && tlsCfg.VerifyConnection != nil,
		"chain and hostname verification must run through the policies")

	return &Client{
		client: &http.Client{
			Transport: rt,
			Timeout:   cfg.Timeouts.Call,
		},
		transport: transport,
		tlsConfig: tlsCfg,
		timeouts:  cfg.Timeouts,
		trust:     cfg.Trust,
		hostname:  cfg.Hostname,
	}, nil
}

// newTLSConfig builds the secure-transport context: protocol bounds, the
// random source, optional client certificates and the policies as the only
// trust source.
func newTLSConfig(cfg Config) (*tls.Config, error) {
	minVersion, maxVersion, err := protocolVersions(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	if _, err := io.ReadFull(rnd, make([]byte, 1)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}

	var certs []tls.Certificate
	if len(cfg.Certificates) > 0 {
		certs = make([]tls.Certificate, len(cfg.Certificates))
		copy(certs, cfg.Certificates)
	}

	return &tls.Config{
		MinVersion:   minVersion,
		MaxVersion:   maxVersion,
		Rand:         rnd,
		Certificates: certs,
		NextProtos:   []string{"h2", "http/1.1"},
		// Chain and hostname checks run in VerifyConnection instead.
		InsecureSkipVerify: true, // #nosec G402
		VerifyConnection:   tlspolicy.VerifyServerConnection(cfg.Trust, cfg.Hostname, ""),
	}, nil
}

// Timeouts returns the timeouts the client was built with.
func (c *Client) Timeouts() Timeouts {
	return c.timeouts
}

// TrustPolicy returns the certificate trust policy.
func (c *Client) TrustPolicy() tlspolicy.TrustPolicy {
	return c.trust
}

// HostnamePolicy returns the hostname policy.
func (c *Client) HostnamePolicy() tlspolicy.HostnamePolicy {
	return c.hostname
}

// TLSConfig returns a copy of the client's TLS configuration.
func (c *Client) TLSConfig() *tls.Config {
	return c.tlsConfig.Clone()
}

// Get performs an HTTP GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs an HTTP POST request.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return c.withBody(ctx, http.MethodPost, url, contentType, body)
}

// Put performs an HTTP PUT request.
func (c *Client) Put(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return c.withBody(ctx, http.MethodPut, url, contentType, body)
}

// Patch performs an HTTP PATCH request.
func (c *Client) Patch(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return c.withBody(ctx, http.MethodPatch, url, contentType, body)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create DELETE request: %w", err)
	}
	return c.client.Do(req)
}

// Do performs an HTTP request.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// HTTPClient returns the underlying *http.Client for advanced usage.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// Close releases idle connections. In-flight requests are not interrupted.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func (c *Client) withBody(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.client.Do(req)
}

// isNil reports whether v is nil or an interface holding a nil pointer,
// map, slice, func or channel.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
