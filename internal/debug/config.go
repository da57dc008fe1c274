package debug

import (
	"os"
	"strconv"
	"strings"
)

// Config holds debug mode configuration
type Config struct {
	// Enabled is the global debug on/off switch
	Enabled bool

	// Format selects the log formatter: "text" or "json"
	Format string
}

// Active is the global debug configuration
var Active = Config{Format: "text"}

// Init initializes debug configuration from environment variables
func Init() {
	Active = Config{
		Enabled: parseBool(os.Getenv("UNSAFEHTTP_DEBUG"), false),
		Format:  strings.ToLower(getEnvOrDefault("UNSAFEHTTP_LOG_FORMAT", "text")),
	}
}

func parseBool(s string, defaultVal bool) bool {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsEnabled returns whether debug mode is enabled
func IsEnabled() bool {
	return Active.Enabled
}
