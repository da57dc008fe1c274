package main

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spiffe/go-spiffe/v2/spiffetls"

	"github.com/sufield/unsafehttp/internal/config"
	"github.com/sufield/unsafehttp/internal/debug"
	"github.com/sufield/unsafehttp/internal/selfsigned"
	"github.com/sufield/unsafehttp/pkg/tlspolicy"
)

const maxEchoBody = 1 << 20

type serveOptions struct {
	addr       string
	hosts      []string
	expired    bool
	clientAuth bool
	clientCA   string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTPS with a throwaway self-signed certificate",
		Long: `serve starts an HTTPS server whose certificate fails normal verification:
it is self-signed, optionally expired, and only valid for --host.

Endpoints:
  GET  /healthz   returns "ok"
  GET  /time      returns the server time and the client certificate subject
  POST /echo      returns the request body
  GET  /metrics   Prometheus metrics`,
		Example: `  unsafehttp serve --addr :8443
  unsafehttp serve --expired --host wrong.example
  unsafehttp serve --client-auth --client-ca ./ca.pem`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8443", "Listen address")
	cmd.Flags().StringSliceVar(&opts.hosts, "host", []string{"localhost", "127.0.0.1"}, "DNS names or IPs in the certificate")
	cmd.Flags().BoolVar(&opts.expired, "expired", false, "Serve an already expired certificate")
	cmd.Flags().BoolVar(&opts.clientAuth, "client-auth", false, "Require a client certificate")
	cmd.Flags().StringVar(&opts.clientCA, "client-ca", "", "PEM issuers for client certificates (any certificate when empty)")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	tlsCfg, err := newServerTLSConfig(opts)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.addr, err)
	}

	srv := &http.Server{
		Handler:           newRouter(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	leaf := tlsCfg.Certificates[0].Leaf
	fmt.Fprintf(cmd.OutOrStdout(), "Serving https://%s\n  hosts:       %s\n  not after:   %s\n  fingerprint: %X\n",
		ln.Addr(), strings.Join(opts.hosts, ", "), leaf.NotAfter.Format(time.RFC3339), sha256.Sum256(leaf.Raw))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		// Certificates come from srv.TLSConfig
		if err := srv.ServeTLS(ln, "", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	debug.GetLogger().Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newServerTLSConfig(opts serveOptions) (*tls.Config, error) {
	var (
		cert tls.Certificate
		err  error
	)
	if opts.expired {
		cert, err = selfsigned.Expired(opts.hosts...)
	} else {
		cert, err = selfsigned.Generate(selfsigned.Options{Hosts: opts.hosts})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if !opts.clientAuth {
		if opts.clientCA != "" {
			return nil, errors.New("--client-ca requires --client-auth")
		}
		return cfg, nil
	}

	var trust tlspolicy.TrustPolicy = tlspolicy.TrustAll{}
	if opts.clientCA != "" {
		issuers, err := config.ReadIssuers(opts.clientCA)
		if err != nil {
			return nil, err
		}
		trust = tlspolicy.NewStrict(issuers...)
	}

	// Chain verification is done by the trust policy
	cfg.ClientAuth = tls.RequireAnyClientCert
	cfg.VerifyConnection = tlspolicy.VerifyClientConnection(trust)

	return cfg, nil
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			debug.GetLogger().WithError(err).Warn("write error")
		}
	})

	r.Get("/time", func(w http.ResponseWriter, req *http.Request) {
		if _, err := fmt.Fprintf(w, "Server time: %s\nClient: %s\n", time.Now().Format(time.RFC3339), peerName(req)); err != nil {
			debug.GetLogger().WithError(err).Warn("write error")
		}
	})

	r.Post("/echo", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxEchoBody))
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if ct := req.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if _, err := w.Write(body); err != nil {
			debug.GetLogger().WithError(err).Warn("write error")
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// peerName describes the client certificate: its SPIFFE ID when it carries
// one, otherwise its subject. The certificate was only checked by the
// serve trust policy, which may be trust-all.
func peerName(req *http.Request) string {
	if req.TLS == nil {
		return "anonymous"
	}
	if id, err := spiffetls.PeerIDFromConnectionState(*req.TLS); err == nil {
		return id.String()
	}
	if len(req.TLS.PeerCertificates) > 0 {
		return req.TLS.PeerCertificates[0].Subject.String()
	}
	return "anonymous"
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		debug.GetLogger().WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"status": ww.Status(),
			"remote": req.RemoteAddr,
			"took":   time.Since(start).String(),
		}).Debug("served request")
	})
}
