package config

// Trust modes accepted in trust.mode.
const (
	ModeInsecure = "insecure"
	ModeStrict   = "strict"
	ModeSPIFFE   = "spiffe"
)

// TimeoutsSection holds the four client timeouts.
// Use Go duration format: "5s", "30s", "1m", etc. Empty means 30 seconds.
type TimeoutsSection struct {
	Call    string `yaml:"call"`
	Connect string `yaml:"connect"`
	Read    string `yaml:"read"`
	Write   string `yaml:"write"`
}

// ClientSection contains HTTP client settings.
type ClientSection struct {
	// Protocol is "TLS" (default), "SSL", "TLSv1.2" or "TLSv1.3".
	Protocol  string          `yaml:"protocol"`
	Timeouts  TimeoutsSection `yaml:"timeouts"`
	UserAgent string          `yaml:"user_agent"`

	// LogLevel is "none", "basic", "headers" or "body".
	LogLevel string `yaml:"log_level"`

	Metrics bool `yaml:"metrics"`
}

// SPIFFESection configures trust.mode spiffe.
type SPIFFESection struct {
	// WorkloadSocket is the SPIRE Agent's Workload API socket.
	// Example: "unix:///tmp/spire-agent/public/api.sock"
	WorkloadSocket string `yaml:"workload_socket"`

	// InitialFetchTimeout is how long to wait for the first SVID/Bundle.
	// If not set, defaults to 30 seconds.
	InitialFetchTimeout string `yaml:"initial_fetch_timeout"`

	ExpectedServerSPIFFEID    string `yaml:"expected_server_spiffe_id"`
	ExpectedServerTrustDomain string `yaml:"expected_server_trust_domain"`
}

// TrustSection selects how server certificates are verified.
type TrustSection struct {
	// Mode is one of "insecure", "strict" or "spiffe". There is no default:
	// disabling verification must be an explicit choice.
	Mode string `yaml:"mode"`

	// CAFile is a PEM bundle of issuers for strict mode. Empty means the
	// platform root store.
	CAFile string `yaml:"ca_file"`

	SPIFFE SPIFFESection `yaml:"spiffe"`
}

// FileConfig represents an unsafehttp configuration file.
//
// The config format is versioned to support future evolution without breaking changes.
type FileConfig struct {
	// Version is the config file format version (optional, currently always 1)
	Version int `yaml:"version,omitempty"`

	Client ClientSection `yaml:"client"`
	Trust  TrustSection  `yaml:"trust"`
}
