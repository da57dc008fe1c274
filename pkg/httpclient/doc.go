// Package httpclient builds HTTP clients whose TLS trust decisions are made
// entirely by caller-selected tlspolicy values.
//
// # Usage
//
// Build a client from an explicit configuration:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Trust = tlspolicy.NewStrict(caCert)
//	cfg.Hostname = tlspolicy.MatchHostname{}
//	cfg.Timeouts.Read = 10 * time.Second
//
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// Or accept every certificate and hostname:
//
//	client, err := httpclient.NewInsecure()
//
// # Security
//
// NewInsecure and InsecureConfig install tlspolicy.TrustAll and
// tlspolicy.AnyHostname. Traffic is encrypted but the server is not
// authenticated, so any party on the network path can intercept it. The
// trade-off is spelled out at the call site on purpose.
//
// # Timeouts
//
// Four timeouts are configured independently and are fixed once the client
// is built:
//   - Call: whole request including redirects and body read (http.Client.Timeout)
//   - Connect: TCP dial and TLS handshake
//   - Read: maximum wait for any single read from the connection
//   - Write: maximum wait for any single write to the connection
//
// All four default to 30 seconds. Idle pooled connections are dropped once
// the read timeout elapses without traffic.
//
// # Errors
//
// Every failure from New is a *ConstructionError. errors.Is(err,
// ErrConstruction) reports true for all of them and the underlying cause is
// reachable through errors.Is / errors.As / errors.Unwrap.
//
// # Thread Safety
//
// New may be called concurrently; each call returns an independent client.
// A Client is safe for concurrent use.
package httpclient
