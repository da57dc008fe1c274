package httpclient

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sufield/unsafehttp/pkg/tlspolicy"
)

// DefaultTimeout is the default for each of the four timeouts.
const DefaultTimeout = 30 * time.Second

// Timeouts are the four per-client time limits. Each must be positive.
type Timeouts struct {
	// Call bounds a whole request, redirects and response body included.
	Call time.Duration

	// Connect bounds the TCP dial and, separately, the TLS handshake.
	Connect time.Duration

	// Read bounds each individual read from the connection.
	Read time.Duration

	// Write bounds each individual write to the connection.
	Write time.Duration
}

// DefaultTimeouts returns DefaultTimeout for all four settings.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Call:    DefaultTimeout,
		Connect: DefaultTimeout,
		Read:    DefaultTimeout,
		Write:   DefaultTimeout,
	}
}

func (t Timeouts) validate() error {
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"call", t.Call},
		{"connect", t.Connect},
		{"read", t.Read},
		{"write", t.Write},
	} {
		if f.d <= 0 {
			return fmt.Errorf("%w: %s timeout is %s", ErrInvalidTimeout, f.name, f.d)
		}
	}
	return nil
}

// LogLevel selects how much of each exchange the request logger records.
type LogLevel int

const (
	// LogNone disables request logging.
	LogNone LogLevel = iota
	// LogBasic logs the request line, status and duration.
	LogBasic
	// LogHeaders adds request and response headers.
	LogHeaders
	// LogBody adds request and response bodies, truncated.
	LogBody
)

func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogBasic:
		return "basic"
	case LogHeaders:
		return "headers"
	case LogBody:
		return "body"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLogLevel parses "none", "basic", "headers" or "body". Empty means none.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LogNone, nil
	case "basic":
		return LogBasic, nil
	case "headers":
		return LogHeaders, nil
	case "body":
		return LogBody, nil
	default:
		return LogNone, fmt.Errorf("invalid log level %q (expected none, basic, headers or body)", s)
	}
}

// Config is the complete input of New. It is copied by New; later changes
// to a Config do not affect clients already built from it.
type Config struct {
	Timeouts Timeouts

	// Trust validates certificate chains. Required.
	Trust tlspolicy.TrustPolicy

	// Hostname validates the server certificate against the dialed host. Required.
	Hostname tlspolicy.HostnamePolicy

	// Protocol names the TLS protocol: "TLS" (default), "SSL" (alias of
	// TLS), "TLSv1.2" or "TLSv1.3".
	Protocol string

	// Rand is the entropy source for session key material. Defaults to crypto/rand.
	Rand io.Reader

	// Certificates are presented to servers requesting client authentication.
	// Empty by default.
	Certificates []tls.Certificate

	// UserAgent is set on requests that carry no User-Agent header.
	UserAgent string

	// LogLevel enables request logging on Logger.
	LogLevel LogLevel

	// Logger receives construction and request logs. Defaults to the
	// process logger from internal/debug.
	Logger logrus.FieldLogger

	// Metrics instruments requests with Prometheus collectors.
	Metrics bool

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultConfig returns default timeouts and pooling with no policies set.
// Trust and Hostname must be chosen by the caller.
func DefaultConfig() Config {
	return Config{
		Timeouts:            DefaultTimeouts(),
		Protocol:            DefaultProtocol,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// InsecureConfig returns DefaultConfig with certificate and hostname
// verification disabled.
func InsecureConfig() Config {
	cfg := DefaultConfig()
	cfg.Trust = tlspolicy.TrustAll{}
	cfg.Hostname = tlspolicy.AnyHostname{}
	return cfg
}
