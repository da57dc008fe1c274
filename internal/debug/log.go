package debug

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// l is the private process-wide logger (use GetLogger() to access)
	l    = newLogger()
	once sync.Once
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// GetLogger returns the configured logger.
// Always use this function to access the logger instead of storing a reference.
//
// Example usage:
//
//	logger := debug.GetLogger()
//	logger.Debugf("dialing %s", addr)
//	logger.WithField("trust", "trust-all").Warn("certificate verification disabled")
func GetLogger() logrus.FieldLogger {
	return l
}

// InitLogger applies Active to the logger.
// Uses sync.Once to ensure initialization happens only once, even in concurrent environments.
// Call this after debug.Init() to ensure Active is populated.
func InitLogger() {
	once.Do(func() {
		if Active.Format == "json" {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
		if Active.Enabled {
			l.SetLevel(logrus.DebugLevel)
			l.Debug("Debug logging enabled")
		}
	})
}
