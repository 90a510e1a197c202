package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureClosed_OpenPortReportsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	err = ensureClosed(context.Background(), ln.Addr().(*net.TCPAddr), 2*time.Second)
	assert.Error(t, err)
}

func TestEnsureClosed_RefusedPortSucceeds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	err = ensureClosed(context.Background(), addr, 2*time.Second)
	assert.NoError(t, err)
}
