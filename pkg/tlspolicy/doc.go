// Package tlspolicy defines the certificate trust and hostname verification
// capabilities used by pkg/httpclient, together with their concrete variants.
//
// Two capabilities exist:
//   - TrustPolicy decides whether a presented certificate chain is acceptable.
//   - HostnamePolicy decides whether the server certificate matches the host
//     the client dialed.
//
// Each capability has a strict variant that delegates to crypto/x509 and a
// permissive variant that accepts everything. A SPIFFE trust policy verifies
// X.509 SVIDs against a go-spiffe bundle source instead of DNS names.
//
// # Security
//
// TrustAll and AnyHostname disable authentication of the remote peer. A
// connection built on them is encrypted but anyone on the network path can
// impersonate the server. Pick them explicitly and only for endpoints you
// already trust by other means (lab devices, self-signed dev servers):
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Trust = tlspolicy.TrustAll{}
//	cfg.Hostname = tlspolicy.AnyHostname{}
//
// # Wiring
//
// The policies are installed through tls.Config.VerifyConnection with
// InsecureSkipVerify set, which makes them the sole trust source:
//
//	tlsCfg := &tls.Config{
//	    InsecureSkipVerify: true,
//	    VerifyConnection:   tlspolicy.VerifyServerConnection(trust, hostname, "api.internal"),
//	}
package tlspolicy
