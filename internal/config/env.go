package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// applyEnvOverrides overrides config values with environment variables if set
// Returns error for invalid environment variable values to fail fast
func applyEnvOverrides(cfg *FileConfig) error {
	if mode := os.Getenv("UNSAFEHTTP_TRUST_MODE"); mode != "" {
		cfg.Trust.Mode = mode
	}
	if caFile := os.Getenv("UNSAFEHTTP_CA_FILE"); caFile != "" {
		cfg.Trust.CAFile = caFile
	}
	if protocol := os.Getenv("UNSAFEHTTP_PROTOCOL"); protocol != "" {
		cfg.Client.Protocol = protocol
	}
	if userAgent := os.Getenv("UNSAFEHTTP_USER_AGENT"); userAgent != "" {
		cfg.Client.UserAgent = userAgent
	}
	if level := os.Getenv("UNSAFEHTTP_LOG_LEVEL"); level != "" {
		cfg.Client.LogLevel = level
	}
	if enabled := os.Getenv("UNSAFEHTTP_METRICS"); enabled != "" {
		e, err := parseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid UNSAFEHTTP_METRICS %q: %w", enabled, err)
		}
		cfg.Client.Metrics = e
	}

	// Timeout overrides
	timeouts := []struct {
		env    string
		target *string
	}{
		{"UNSAFEHTTP_CALL_TIMEOUT", &cfg.Client.Timeouts.Call},
		{"UNSAFEHTTP_CONNECT_TIMEOUT", &cfg.Client.Timeouts.Connect},
		{"UNSAFEHTTP_READ_TIMEOUT", &cfg.Client.Timeouts.Read},
		{"UNSAFEHTTP_WRITE_TIMEOUT", &cfg.Client.Timeouts.Write},
	}
	for _, o := range timeouts {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", o.env, v, err)
		}
		*o.target = v
	}

	// SPIRE configuration
	if socketPath := os.Getenv("SPIRE_AGENT_SOCKET"); socketPath != "" {
		cfg.Trust.SPIFFE.WorkloadSocket = socketPath
	}

	return nil
}

// parseBool parses boolean environment variables
// Accepts: "true", "1", "yes", "on" for true; "false", "0", "no", "off" for false
func parseBool(value string) (bool, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
}
