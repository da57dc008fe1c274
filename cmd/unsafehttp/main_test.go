package main

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/unsafehttp/internal/selfsigned"
	"github.com/sufield/unsafehttp/pkg/httpclient"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(VersionInfo{Version: "test", Commit: "abc123", Date: "today"})
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unsafehttp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid insecure config", func(t *testing.T) {
		out, err := execute(t, "validate", writeConfig(t, "trust:\n  mode: insecure\n"))
		require.NoError(t, err)
		assert.Contains(t, out, "is valid")
		assert.Contains(t, out, "WARNING")
		assert.Contains(t, out, "30s")
	})

	t.Run("valid strict config", func(t *testing.T) {
		out, err := execute(t, "validate", writeConfig(t, "trust:\n  mode: strict\n"))
		require.NoError(t, err)
		assert.Contains(t, out, "platform roots")
		assert.NotContains(t, out, "WARNING")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := execute(t, "validate", writeConfig(t, "trust:\n  mode: sometimes\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid trust.mode")
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute(t, "validate")
		require.Error(t, err)
	})
}

func TestRequestCommand_Insecure(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		_, _ = io.WriteString(w, r.Method+" ok")
	}))
	defer srv.Close()

	out, err := execute(t, "request", "--insecure", "--url", srv.URL, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, "X-Test: yes")
	assert.Contains(t, out, "GET ok")
}

func TestRequestCommand_PostBody(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(w, r.Body)
	}))
	defer srv.Close()

	out, err := execute(t, "request", "--insecure", "--method", "post", "--data", "ping", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "ping")
}

func TestRequestCommand_Config(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "configured")
	}))
	defer srv.Close()

	out, err := execute(t, "request", "--config", writeConfig(t, "trust:\n  mode: insecure\n"), "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "configured")
}

func TestRequestCommand_HTTPError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := execute(t, "request", "--insecure", "--url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, out, "nope")
}

func TestRequestCommand_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing url", []string{"request", "--insecure"}},
		{"config and insecure", []string{"request", "--insecure", "--config", "x.yaml", "--url", "https://127.0.0.1:1"}},
		{"bad log level", []string{"request", "--insecure", "--log-level", "loud", "--url", "https://127.0.0.1:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "unsafehttp test (commit: abc123, built: today)\n", out)

	out, err = execute(t, "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Connect Timeout")
	assert.Contains(t, out, "trust-all")
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(newRouter())
	defer srv.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("time without client certificate", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/time")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Client: anonymous")
	})

	t.Run("echo", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/echo", "text/plain", strings.NewReader("hello"))
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "hello", string(body))
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/missing")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestNewServerTLSConfig(t *testing.T) {
	t.Run("self-signed", func(t *testing.T) {
		cfg, err := newServerTLSConfig(serveOptions{hosts: []string{"localhost"}})
		require.NoError(t, err)
		require.Len(t, cfg.Certificates, 1)
		leaf := cfg.Certificates[0].Leaf
		require.NotNil(t, leaf)
		assert.Equal(t, []string{"localhost"}, leaf.DNSNames)
		assert.True(t, leaf.NotAfter.After(time.Now()))
		assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)
	})

	t.Run("expired", func(t *testing.T) {
		cfg, err := newServerTLSConfig(serveOptions{hosts: []string{"localhost"}, expired: true})
		require.NoError(t, err)
		assert.True(t, cfg.Certificates[0].Leaf.NotAfter.Before(time.Now()))
	})

	t.Run("client auth", func(t *testing.T) {
		cfg, err := newServerTLSConfig(serveOptions{hosts: []string{"localhost"}, clientAuth: true})
		require.NoError(t, err)
		assert.Equal(t, tls.RequireAnyClientCert, cfg.ClientAuth)
		assert.NotNil(t, cfg.VerifyConnection)
	})

	t.Run("client CA without client auth", func(t *testing.T) {
		_, err := newServerTLSConfig(serveOptions{hosts: []string{"localhost"}, clientCA: "ca.pem"})
		require.Error(t, err)
	})

	t.Run("missing client CA", func(t *testing.T) {
		_, err := newServerTLSConfig(serveOptions{
			hosts:      []string{"localhost"},
			clientAuth: true,
			clientCA:   filepath.Join(t.TempDir(), "missing.pem"),
		})
		require.Error(t, err)
	})
}

func TestServe_ClientCertificateIdentity(t *testing.T) {
	tlsCfg, err := newServerTLSConfig(serveOptions{hosts: []string{"127.0.0.1"}, clientAuth: true})
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(newRouter())
	srv.TLS = tlsCfg
	srv.StartTLS()
	defer srv.Close()

	clientCert, err := selfsigned.Generate(selfsigned.Options{
		URIs:       []string{"spiffe://example.org/caller"},
		ClientAuth: true,
	})
	require.NoError(t, err)

	cfg := httpclient.InsecureConfig()
	cfg.Certificates = []tls.Certificate{clientCert}
	client, err := httpclient.New(cfg)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Get(t.Context(), srv.URL+"/time")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Client: spiffe://example.org/caller")
}
