package mutualtls

import (
	"crypto/tls"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPair_Invariants(t *testing.T) {
	pair, err := NewPair("test session")
	require.NoError(t, err)

	assert.Equal(t, "test session server CA", pair.Client.PeerCA.Subject.CommonName)
	assert.Equal(t, "test session client CA", pair.Server.PeerCA.Subject.CommonName)
	assert.Equal(t, "test session server", pair.Server.Certificate.Subject.CommonName)
	assert.Equal(t, "test session client", pair.Client.Certificate.Subject.CommonName)

	// The server's peer trust root is the client CA, and the client's leaf
	// is signed by that same CA.
	roots := newPoolOf(pair.Server.PeerCA)
	_, err = pair.Client.Certificate.Verify(verifyOpts(roots))
	assert.NoError(t, err)

	roots = newPoolOf(pair.Client.PeerCA)
	_, err = pair.Server.Certificate.Verify(verifyOpts(roots))
	assert.NoError(t, err)
}

func TestNewPair_ValidityWindow(t *testing.T) {
	pair, err := NewPair("window")
	require.NoError(t, err)

	now := time.Now()
	assert.WithinDuration(t, now.Add(-30*24*time.Hour), pair.Server.Certificate.NotBefore, time.Minute)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), pair.Server.Certificate.NotAfter, time.Minute)
}

func TestHandshake_MatchedPairSucceeds(t *testing.T) {
	pair, err := NewPair("handshake")
	require.NoError(t, err)

	ln, addr := listenTLS(t, pair.Server)
	defer ln.Close()

	clientCfg, err := pair.Client.ClientTLSConfig()
	require.NoError(t, err)
	clientCfg.ServerName = "irrelevant-hostname"

	conn, err := tls.Dial("tcp", addr, clientCfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hi"))
	require.NoError(t, err)
}

func TestHandshake_MixedPairFails(t *testing.T) {
	pairA, err := NewPair("a")
	require.NoError(t, err)
	pairB, err := NewPair("b")
	require.NoError(t, err)

	ln, addr := listenTLS(t, pairA.Server)
	defer ln.Close()

	// pairB's client doesn't trust pairA's server CA, and vice versa.
	clientCfg, err := pairB.Client.ClientTLSConfig()
	require.NoError(t, err)
	clientCfg.ServerName = "irrelevant-hostname"

	conn, err := tls.Dial("tcp", addr, clientCfg)
	if err == nil {
		// The handshake may succeed transport-wise depending on timing but
		// any application data exchange must fail the verification on one
		// side; ensure the connection doesn't yield a clean round-trip.
		defer conn.Close()
		_, werr := conn.Write([]byte("hi"))
		buf := make([]byte, 1)
		_, rerr := conn.Read(buf)
		assert.True(t, werr != nil || rerr != nil)
		return
	}
	assert.Error(t, err)
}

func listenTLS(t *testing.T, server Endpoint) (net.Listener, string) {
	t.Helper()

	keyPair, err := tls.X509KeyPair(server.CertificatePEM(), server.KeyPEM())
	require.NoError(t, err)

	roots := newPoolOf(server.PeerCA)

	cfg := &tls.Config{
		Certificates: []tls.Certificate{keyPair},
		ClientCAs:    roots,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	return ln, ln.Addr().String()
}
