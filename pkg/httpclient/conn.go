package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/sufield/unsafehttp/pkg/tlspolicy"
)

// deadlineConn refreshes the read or write deadline before every I/O call,
// so Read and Write timeouts bound each individual wait rather than the
// lifetime of the connection.
type deadlineConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}

// socketFactory opens plain and TLS connections for the transport. The TLS
// side runs the handshake with the client's trust and hostname policies
// bound to the dialed host.
type socketFactory struct {
	dialer           *net.Dialer
	tlsConfig        *tls.Config
	trust            tlspolicy.TrustPolicy
	hostname         tlspolicy.HostnamePolicy
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	writeTimeout     time.Duration
}

func (f *socketFactory) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := f.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return &deadlineConn{Conn: conn, readTimeout: f.readTimeout, writeTimeout: f.writeTimeout}, nil
}

func (f *socketFactory) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	raw, err := f.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	cfg := f.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	cfg.VerifyConnection = tlspolicy.VerifyServerConnection(f.trust, f.hostname, host)

	hsCtx, cancel := context.WithTimeout(ctx, f.handshakeTimeout)
	defer cancel()

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(hsCtx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("TLS handshake with %s failed: %w", addr, err)
	}
	return conn, nil
}
