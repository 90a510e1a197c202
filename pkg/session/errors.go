package session

import (
	"fmt"
	"net"
)

// ErrHostnameResolution means DNS yielded nothing or failed outright; no
// side effects have happened yet (spec.md §7).
type ErrHostnameResolution struct {
	Host string
	Err  error
}

func (e *ErrHostnameResolution) Error() string {
	return fmt.Sprintf("error resolving hostname %q: %v", e.Host, e.Err)
}
func (e *ErrHostnameResolution) Unwrap() error { return e.Err }

// ErrProbe means the pre-probe found the target port already in use,
// unreachable, or unresponsive. No working directory exists on the device
// yet, so no teardown is attempted.
type ErrProbe struct {
	Addr net.Addr
	Err  error
}

func (e *ErrProbe) Error() string { return fmt.Sprintf("error probing %s: %v", e.Addr, e.Err) }
func (e *ErrProbe) Unwrap() error { return e.Err }

// ErrDeviceNotSupported means the vendor API doesn't expose the
// application platform.
var ErrDeviceNotSupported = fmt.Errorf("device not supported")

// ErrShellFailedToStart means the upload settled without a connection ever
// appearing; teardown is still attempted since the start package was
// installed.
var ErrShellFailedToStart = fmt.Errorf("failed to start remote shell, check device logs for detail")

// ErrShellConnection wraps a non-"connection refused" dial failure.
type ErrShellConnection struct{ Err error }

func (e *ErrShellConnection) Error() string {
	return fmt.Sprintf("failed to connect to remote shell, check device logs for detail: %v", e.Err)
}
func (e *ErrShellConnection) Unwrap() error { return e.Err }

// ErrTLSHandshake wraps a TLS negotiation failure.
type ErrTLSHandshake struct{ Detail string }

func (e *ErrTLSHandshake) Error() string { return fmt.Sprintf("TLS handshake failed: %s", e.Detail) }

// ErrInput wraps a stdin read failure (the c2s direction).
type ErrInput struct{ Err error }

func (e *ErrInput) Error() string { return fmt.Sprintf("error reading from stdin: %v", e.Err) }
func (e *ErrInput) Unwrap() error { return e.Err }

// ErrOutput wraps a stdout write failure (the s2c direction).
type ErrOutput struct{ Err error }

func (e *ErrOutput) Error() string { return fmt.Sprintf("error writing to stdout: %v", e.Err) }
func (e *ErrOutput) Unwrap() error { return e.Err }

// ErrConnectionClosed means the peer went away mid-stream.
type ErrConnectionClosed struct{ Err error }

func (e *ErrConnectionClosed) Error() string { return fmt.Sprintf("connection closed: %v", e.Err) }
func (e *ErrConnectionClosed) Unwrap() error { return e.Err }

// ErrTerminal means writing a diagnostic record failed; per spec.md §9 this
// aborts the session rather than being logged and swallowed.
type ErrTerminal struct{ Err error }

func (e *ErrTerminal) Error() string { return fmt.Sprintf("error writing to terminal: %v", e.Err) }
func (e *ErrTerminal) Unwrap() error { return e.Err }

// ErrAPI wraps a failure from the vendor HTTP API, surfaced as-is.
type ErrAPI struct{ Err error }

func (e *ErrAPI) Error() string { return fmt.Sprintf("error communicating with camera: %v", e.Err) }
func (e *ErrAPI) Unwrap() error { return e.Err }
