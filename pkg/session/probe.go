package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// probeTimeout is how long the pre-probe waits for a definitive answer
// before concluding the appliance is unreachable (spec.md §5).
const probeTimeout = 2 * time.Second

// ensureClosed races a TCP connect against probeTimeout to confirm that
// addr is not already serving something, and that it's at least reachable.
// This is mandatory (spec.md §4.5): without it the orchestrator can't
// distinguish "our payload started" from "something else got there
// first". Grounded on the teacher's pkg/health.TCPChecker dial pattern.
func ensureClosed(ctx context.Context, addr *net.TCPAddr, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr.String())
	switch {
	case err == nil:
		conn.Close()
		return fmt.Errorf("destination port is already open")
	case isConnectionRefused(err):
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("connection timed out (are you behind a firewall?)")
	default:
		return err
	}
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
