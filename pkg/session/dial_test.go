package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial_SucceedsAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	conn, err := dial(context.Background(), ln.Addr().(*net.TCPAddr), 2*time.Second)
	require.NoError(t, err)
	conn.Close()
}

func TestDial_TimesOutAgainstRefusedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	_, err = dial(context.Background(), addr, 200*time.Millisecond)
	assert.Error(t, err)
}
