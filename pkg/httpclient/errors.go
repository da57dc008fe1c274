package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction matches every error returned by New.
	ErrConstruction = errors.New("http client construction failed")

	// ErrUnsupportedProtocol is the cause when Config.Protocol names no known TLS protocol.
	ErrUnsupportedProtocol = errors.New("unsupported TLS protocol")

	// ErrMissingTrustPolicy is the cause when Config.Trust is nil.
	ErrMissingTrustPolicy = errors.New("trust policy is required")

	// ErrMissingHostnamePolicy is the cause when Config.Hostname is nil.
	ErrMissingHostnamePolicy = errors.New("hostname policy is required")

	// ErrInvalidTimeout is the cause when a timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be > 0")

	// ErrRandomSource is the cause when Config.Rand cannot produce key material.
	ErrRandomSource = errors.New("random source unavailable")
)

// ConstructionError is the single error type returned by New. Cause holds
// the underlying reason.
type ConstructionError struct {
	Cause error
}

func (e *ConstructionError) Error() string {
	if e.Cause == nil {
		return ErrConstruction.Error()
	}
	return fmt.Sprintf("%s: %v", ErrConstruction, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

func constructionError(cause error) error {
	return &ConstructionError{Cause: cause}
}
