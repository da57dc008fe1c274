// Package spire connects to the SPIRE Workload API and exposes the X.509
// source used by the SPIFFE trust policy in pkg/tlspolicy.
package spire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// DefaultInitialFetchTimeout bounds the first SVID/bundle fetch when
// Config.InitialFetchTimeout is zero.
const DefaultInitialFetchTimeout = 30 * time.Second

// ErrSourceClosed is returned by X509Source after Close.
var ErrSourceClosed = errors.New("SPIRE source is closed")

// Source provides SPIFFE X.509 identities and trust bundles from the SPIRE
// Workload API.
//
// The underlying X509Source watches the Workload API and rotates
// certificates and bundles automatically.
//
// Lifecycle:
//   - Create once per process
//   - Share across clients built with the SPIFFE trust policy
//   - Call Close() when done to release connections and goroutines
//
// Thread-safety: All methods are safe for concurrent use.
type Source struct {
	mu     sync.RWMutex
	source *workloadapi.X509Source

	closeOnce sync.Once
	closeErr  error
}

// Config configures the SPIRE source.
type Config struct {
	// WorkloadSocket is the SPIRE agent's Workload API address.
	//
	// If empty, the SDK auto-detects from SPIFFE_ENDPOINT_SOCKET.
	//
	// Accepts:
	//   - unix:// scheme: "unix:///tmp/spire-agent/public/api.sock"
	//   - tcp:// scheme: "tcp://spire-agent:8081"
	//   - Bare filesystem path: "/tmp/spire-agent/public/api.sock" (treated as unix://)
	WorkloadSocket string

	// InitialFetchTimeout bounds the wait for the first SVID and bundle.
	// Zero means DefaultInitialFetchTimeout.
	InitialFetchTimeout time.Duration
}

// NewSource connects to the Workload API and waits for the first update.
//
// Returns error if:
//   - Context is nil
//   - The agent is unreachable or the workload is not registered before
//     the initial fetch timeout
func NewSource(ctx context.Context, cfg Config) (*Source, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	timeout := cfg.InitialFetchTimeout
	if timeout <= 0 {
		timeout = DefaultInitialFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var opts []workloadapi.X509SourceOption
	if cfg.WorkloadSocket != "" {
		addr := normalizeToAddr(cfg.WorkloadSocket)
		opts = append(opts, workloadapi.WithClientOptions(workloadapi.WithAddr(addr)))
	}

	x509src, err := workloadapi.NewX509Source(fetchCtx, opts...)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("timed out after %s waiting for SPIRE Workload API: %w", timeout, err)
		}
		return nil, fmt.Errorf("failed to create X509Source: %w", err)
	}

	return &Source{source: x509src}, nil
}

// X509Source returns the live SDK source. It serves both as the SVID source
// and the bundle source.
func (s *Source) X509Source() (*workloadapi.X509Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.source == nil {
		return nil, ErrSourceClosed
	}
	return s.source, nil
}

// Close releases the Workload API connection. It is idempotent; later calls
// return the first result.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.source != nil {
			s.closeErr = s.source.Close()
			s.source = nil
		}
	})
	return s.closeErr
}

// normalizeToAddr converts bare filesystem paths to unix:// addresses.
func normalizeToAddr(raw string) string {
	if strings.HasPrefix(raw, "unix://") || strings.HasPrefix(raw, "tcp://") {
		return raw
	}
	return "unix://" + raw
}
