package session

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trunnion/axctl/pkg/vapix"
)

func testApplications(t *testing.T) *vapix.Applications {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	apps, err := vapix.New(u).Applications(context.Background())
	require.NoError(t, err)
	return apps
}

func TestRaceUploadAgainstDial_DialWins(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := raceUploadAgainstDial(ctx, testApplications(t), []byte("eap"), ln.Addr().(*net.TCPAddr), 2*time.Second, time.Hour)
	require.NoError(t, err)
	conn.Close()
}

func TestRaceUploadAgainstDial_UploadSettlesFirst(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // nothing ever accepts; dial keeps retrying on "connection refused"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = raceUploadAgainstDial(ctx, testApplications(t), []byte("eap"), addr, 5*time.Second, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrShellFailedToStart)
}
