package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// dialDeadline bounds the whole dial loop (spec.md §5).
const dialDeadline = 20 * time.Second

// dialBackoff is the pause after a "connection refused", so the loop
// doesn't spin CPU while the payload is still unpacking (spec.md §5).
const dialBackoff = 100 * time.Millisecond

// dial repeatedly attempts a TCP connect to addr until it succeeds, fails
// with something other than "connection refused", or deadline elapses.
func dial(ctx context.Context, addr *net.TCPAddr, deadline time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr.String())
		if err == nil {
			return conn, nil
		}

		if isConnectionRefused(err) {
			select {
			case <-time.After(dialBackoff):
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("connection timed out")
			}
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("connection timed out")
		}
		return nil, err
	}
}
