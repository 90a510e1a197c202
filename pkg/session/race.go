package session

import (
	"context"
	"net"
	"time"

	"github.com/trunnion/axctl/pkg/vapix"
)

// uploadSettle is how long the upload branch waits, after the upload
// itself completes, before declaring the attempt "settled" (spec.md §4.5):
// it exists purely to give the dial loop a head start.
const uploadSettle = 5 * time.Second

// raceUploadAgainstDial starts the start-package upload and the dial loop
// concurrently and returns whichever resolves the session: a live
// connection, or ErrShellFailedToStart if the upload settles first with no
// connection in hand.
//
// The two branches are biased toward the connection: if both channels have
// a value ready, the dial result wins, so a dial that completes
// microseconds before the upload settles is never mistaken for a failed
// start. Cancelling the loser is safe: the dial's context is cancelled via
// defer, and the upload goroutine's result is simply never read.
func raceUploadAgainstDial(ctx context.Context, apps *vapix.Applications, eap []byte, addr *net.TCPAddr, dialDeadline, uploadSettle time.Duration) (net.Conn, error) {
	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()

	type dialResult struct {
		conn net.Conn
		err  error
	}
	dialCh := make(chan dialResult, 1)
	go func() {
		conn, err := dial(dialCtx, addr, dialDeadline)
		dialCh <- dialResult{conn, err}
	}()

	uploadCh := make(chan struct{}, 1)
	go func() {
		// The upload's own result is deliberately not surfaced here: once
		// the package is installed, whether the HTTP call itself reported
		// success is no longer informative about whether the shell came
		// up. Only the dial loop can tell us that.
		_ = apps.Upload(ctx, eap)

		// Yield control to the dial loop for a while before declaring the
		// upload settled; see uploadSettle's doc comment.
		select {
		case <-time.After(uploadSettle):
		case <-ctx.Done():
		}

		uploadCh <- struct{}{}
	}()

	select {
	case result := <-dialCh:
		if result.err != nil {
			return nil, &ErrShellConnection{Err: result.err}
		}
		return result.conn, nil

	case <-uploadCh:
		// The dial may have completed in the same instant; prefer it.
		select {
		case result := <-dialCh:
			if result.err != nil {
				return nil, &ErrShellConnection{Err: result.err}
			}
			return result.conn, nil
		default:
		}

		return nil, ErrShellFailedToStart
	}
}
