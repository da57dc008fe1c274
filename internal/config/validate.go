package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"

	"github.com/sufield/unsafehttp/pkg/httpclient"
)

// SPIFFESettings is the parsed form of SPIFFESection.
type SPIFFESettings struct {
	WorkloadSocket      string
	InitialFetchTimeout time.Duration
	Authorizer          tlsconfig.Authorizer
}

// Settings is a validated configuration with every string parsed.
type Settings struct {
	Mode      string
	Protocol  string
	Timeouts  httpclient.Timeouts
	UserAgent string
	LogLevel  httpclient.LogLevel
	Metrics   bool
	CAFile    string
	SPIFFE    SPIFFESettings
}

// Validate checks cfg and returns its parsed settings. String fields are
// trimmed in place.
//
// Ensures:
//   - trust.mode is one of insecure, strict, spiffe
//   - client.protocol names a supported protocol
//   - every timeout parses and is positive
//   - client.log_level is known
//   - trust.ca_file is only used in strict mode
//   - spiffe mode sets workload_socket and exactly one of
//     expected_server_spiffe_id or expected_server_trust_domain, both
//     syntactically valid (using SDK validation)
func Validate(cfg *FileConfig) (Settings, error) {
	if cfg == nil {
		return Settings{}, errors.New("config cannot be nil")
	}
	trimAll(cfg)

	var s Settings

	switch cfg.Trust.Mode {
	case ModeInsecure, ModeStrict, ModeSPIFFE:
		s.Mode = cfg.Trust.Mode
	case "":
		return Settings{}, fmt.Errorf("trust.mode must be set to one of %s, %s, %s", ModeInsecure, ModeStrict, ModeSPIFFE)
	default:
		return Settings{}, fmt.Errorf("invalid trust.mode %q: must be one of %s, %s, %s", cfg.Trust.Mode, ModeInsecure, ModeStrict, ModeSPIFFE)
	}

	s.Protocol = cfg.Client.Protocol
	if s.Protocol == "" {
		s.Protocol = httpclient.DefaultProtocol
	}
	if err := httpclient.CheckProtocol(s.Protocol); err != nil {
		return Settings{}, fmt.Errorf("invalid client.protocol: %w", err)
	}

	timeouts, err := parseTimeouts(cfg.Client.Timeouts)
	if err != nil {
		return Settings{}, err
	}
	s.Timeouts = timeouts

	level, err := httpclient.ParseLogLevel(cfg.Client.LogLevel)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid client.log_level: %w", err)
	}
	s.LogLevel = level
	s.UserAgent = cfg.Client.UserAgent
	s.Metrics = cfg.Client.Metrics

	if cfg.Trust.CAFile != "" && s.Mode != ModeStrict {
		return Settings{}, fmt.Errorf("trust.ca_file is only valid with trust.mode %s", ModeStrict)
	}
	s.CAFile = cfg.Trust.CAFile

	spiffeSet := cfg.Trust.SPIFFE != (SPIFFESection{})
	if s.Mode != ModeSPIFFE {
		if spiffeSet {
			return Settings{}, fmt.Errorf("trust.spiffe is only valid with trust.mode %s", ModeSPIFFE)
		}
		return s, nil
	}

	spiffeSettings, err := validateSPIFFE(cfg.Trust.SPIFFE)
	if err != nil {
		return Settings{}, err
	}
	s.SPIFFE = spiffeSettings

	return s, nil
}

func validateSPIFFE(sec SPIFFESection) (SPIFFESettings, error) {
	if sec.WorkloadSocket == "" {
		return SPIFFESettings{}, errors.New("trust.spiffe.workload_socket must be set")
	}

	// Ensure exactly one server verification policy is set
	hasServerID := sec.ExpectedServerSPIFFEID != ""
	hasTrustDomain := sec.ExpectedServerTrustDomain != ""
	if !hasServerID && !hasTrustDomain {
		return SPIFFESettings{}, errors.New("must set exactly one of trust.spiffe.expected_server_spiffe_id or trust.spiffe.expected_server_trust_domain")
	}
	if hasServerID && hasTrustDomain {
		return SPIFFESettings{}, errors.New("cannot set both trust.spiffe.expected_server_spiffe_id and trust.spiffe.expected_server_trust_domain")
	}

	s := SPIFFESettings{WorkloadSocket: sec.WorkloadSocket}

	if hasServerID {
		id, err := spiffeid.FromString(sec.ExpectedServerSPIFFEID)
		if err != nil {
			return SPIFFESettings{}, fmt.Errorf("invalid trust.spiffe.expected_server_spiffe_id %q: %w", sec.ExpectedServerSPIFFEID, err)
		}
		s.Authorizer = tlsconfig.AuthorizeID(id)
	} else {
		td, err := spiffeid.TrustDomainFromString(sec.ExpectedServerTrustDomain)
		if err != nil {
			return SPIFFESettings{}, fmt.Errorf("invalid trust.spiffe.expected_server_trust_domain %q: %w", sec.ExpectedServerTrustDomain, err)
		}
		s.Authorizer = tlsconfig.AuthorizeMemberOf(td)
	}

	if sec.InitialFetchTimeout != "" {
		d, err := time.ParseDuration(sec.InitialFetchTimeout)
		if err != nil {
			return SPIFFESettings{}, fmt.Errorf("invalid trust.spiffe.initial_fetch_timeout %q: %w", sec.InitialFetchTimeout, err)
		}
		if d <= 0 {
			return SPIFFESettings{}, fmt.Errorf("trust.spiffe.initial_fetch_timeout must be > 0, got %s", d)
		}
		s.InitialFetchTimeout = d
	}

	return s, nil
}

func parseTimeouts(sec TimeoutsSection) (httpclient.Timeouts, error) {
	out := httpclient.DefaultTimeouts()
	fields := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"call", sec.Call, &out.Call},
		{"connect", sec.Connect, &out.Connect},
		{"read", sec.Read, &out.Read},
		{"write", sec.Write, &out.Write},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return httpclient.Timeouts{}, fmt.Errorf("invalid client.timeouts.%s %q: %w", f.name, f.raw, err)
		}
		if d <= 0 {
			return httpclient.Timeouts{}, fmt.Errorf("client.timeouts.%s must be > 0, got %s", f.name, d)
		}
		*f.target = d
	}

	return out, nil
}

func trimAll(cfg *FileConfig) {
	for _, p := range []*string{
		&cfg.Client.Protocol,
		&cfg.Client.Timeouts.Call,
		&cfg.Client.Timeouts.Connect,
		&cfg.Client.Timeouts.Read,
		&cfg.Client.Timeouts.Write,
		&cfg.Client.UserAgent,
		&cfg.Client.LogLevel,
		&cfg.Trust.Mode,
		&cfg.Trust.CAFile,
		&cfg.Trust.SPIFFE.WorkloadSocket,
		&cfg.Trust.SPIFFE.InitialFetchTimeout,
		&cfg.Trust.SPIFFE.ExpectedServerSPIFFEID,
		&cfg.Trust.SPIFFE.ExpectedServerTrustDomain,
	} {
		*p = strings.TrimSpace(*p)
	}
	cfg.Trust.Mode = strings.ToLower(cfg.Trust.Mode)
}
