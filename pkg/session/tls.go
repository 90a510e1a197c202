package session

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/trunnion/axctl/pkg/mutualtls"
)

// negotiate performs the client-side TLS handshake over conn using client's
// key/cert/trust material, with hostname set for SNI but hostname
// verification disabled (spec.md §4.2, §4.5): the leaf's CN is the
// session's ephemeral label, not sni.
func negotiate(ctx context.Context, conn net.Conn, client mutualtls.Endpoint, sni string) (*tls.Conn, error) {
	cfg, err := client.ClientTLSConfig()
	if err != nil {
		return nil, &ErrTLSHandshake{Detail: err.Error()}
	}
	cfg.ServerName = sni

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, &ErrTLSHandshake{Detail: err.Error()}
	}

	return tlsConn, nil
}

// cipherName returns the negotiated cipher's name for diagnostics, if TLS
// exposes one for the connection's version.
func cipherName(state tls.ConnectionState) *string {
	name := tls.CipherSuiteName(state.CipherSuite)
	if name == "" {
		return nil
	}
	return &name
}

func tlsVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLSv1.0"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return "unknown"
	}
}
