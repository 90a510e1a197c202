// Package session drives one shell session end to end: resolve the
// target, probe the port, race a start-package upload against a dial
// loop, negotiate mutual TLS, forward bytes, and unconditionally attempt
// teardown. It is the orchestrator the teacher's pkg/reconciler plays for
// a cluster's desired state, generalized from a reconcile loop that runs
// forever to a linear pipeline that runs exactly once per invocation
// (spec.md §4.5).
package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trunnion/axctl/pkg/log"
	"github.com/trunnion/axctl/pkg/metrics"
	"github.com/trunnion/axctl/pkg/mutualtls"
	"github.com/trunnion/axctl/pkg/output"
	"github.com/trunnion/axctl/pkg/shellpkg"
	"github.com/trunnion/axctl/pkg/vapix"
)

// portRangeLow and portRangeHigh bound the random port chosen when the
// operator doesn't pin one (spec.md §4.1): high enough to avoid
// privileged and commonly-reserved ports on the appliance.
const (
	portRangeLow  = 32768
	portRangeHigh = 60999
)

// Config is everything one Run call needs; the caller (cmd/axctl) is
// responsible for parsing flags and a device URL into this shape.
type Config struct {
	// Device is the camera's VAPIX endpoint, credentials included.
	Device *vapix.Device

	// Host is the hostname or IP the shell listener will be dialed back
	// on. It is usually the same host the VAPIX API itself was reached
	// through, but the operator may route the two differently.
	Host string

	// Port is the shell listener's port; zero means "pick one at
	// random" (spec.md §4.1).
	Port uint16

	// Sink receives the operator-facing protocol records.
	Sink *output.Sink

	// Stdin and Stdout back the forwarded shell session. Required.
	Stdin  io.Reader
	Stdout io.Writer

	// Metrics, if non-nil, is timed across every phase.
	Metrics *metrics.Recorder

	// ProbeTimeout, DialDeadline, and UploadSettle override the phase
	// durations spec.md §5 fixes as defaults; zero means "use the
	// default". Exposed for the `--defaults FILE` override (cmd/axctl).
	ProbeTimeout time.Duration
	DialDeadline time.Duration
	UploadSettle time.Duration
}

func (c Config) probeTimeout() time.Duration {
	if c.ProbeTimeout > 0 {
		return c.ProbeTimeout
	}
	return probeTimeout
}

func (c Config) dialDeadline() time.Duration {
	if c.DialDeadline > 0 {
		return c.DialDeadline
	}
	return dialDeadline
}

func (c Config) uploadSettle() time.Duration {
	if c.UploadSettle > 0 {
		return c.UploadSettle
	}
	return uploadSettle
}

// Run drives the full session lifecycle described by spec.md §4.5:
//
//	Init -> Resolved -> Probed -> Connected|ShellFailedToStart ->
//	Negotiated -> Forwarding -> TearingDown -> Ended|Aborted
//
// The returned error, if any, is the reason the session ended; teardown
// is attempted before Run returns whenever the device has a working
// directory to clean up, regardless of how the session ended.
func Run(ctx context.Context, cfg Config) error {
	state := StateInit
	id := shellpkg.SessionID(uuid.New().String())
	logger := log.WithSession(string(id))

	port := cfg.Port
	if port == 0 {
		port = uint16(portRangeLow + rand.Intn(portRangeHigh-portRangeLow+1))
	}

	addr, err := resolveAddr(ctx, cfg.Host, port)
	if err != nil {
		logger.Error().Err(err).Msg("hostname resolution failed")
		return err
	}
	state = StateResolved
	logger.Debug().Str("state", state.String()).Msg("resolved shell address")

	if err := emit(cfg.Sink, startRecord{ID: string(id), ShellAddr: addr.String()}); err != nil {
		return err
	}

	apps, err := cfg.Device.Applications(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("application platform precondition check failed")
		return wrapAPIErr(err)
	}

	if err := timed(cfg.Metrics, metrics.PhaseProbe, func() error { return ensureClosed(ctx, addr, cfg.probeTimeout()) }); err != nil {
		logger.Error().Err(err).Msg("probe failed")
		return &ErrProbe{Addr: addr, Err: err}
	}
	state = StateProbed
	logger.Debug().Str("state", state.String()).Msg("port confirmed available")

	pair, err := mutualtls.NewPair(id.LoggerTag())
	if err != nil {
		return fmt.Errorf("minting session certificates: %w", err)
	}

	startPkg, err := shellpkg.BuildStartPackage(id, port, pair.Server)
	if err != nil {
		return fmt.Errorf("building start package: %w", err)
	}

	var conn net.Conn
	err = timed(cfg.Metrics, metrics.PhaseDial, func() error {
		var rerr error
		conn, rerr = raceUploadAgainstDial(ctx, apps, startPkg, addr, cfg.dialDeadline(), cfg.uploadSettle())
		return rerr
	})
	if err != nil {
		logger.Error().Err(err).Msg("shell did not come up")
		if state.hasWorkingDirectory() {
			teardown(ctx, cfg, apps, id, logger)
		}
		return err
	}
	state = StateConnected
	defer conn.Close()
	logger.Debug().Str("state", state.String()).Msg("shell connection established")

	if err := emit(cfg.Sink, connectedRecord{ID: string(id), ShellAddr: addr.String()}); err != nil {
		if state.hasWorkingDirectory() {
			teardown(ctx, cfg, apps, id, logger)
		}
		return err
	}

	var tlsConn *tls.Conn
	err = timed(cfg.Metrics, metrics.PhaseHandshake, func() error {
		c, herr := negotiate(ctx, conn, pair.Client, cfg.Host)
		if herr != nil {
			return herr
		}
		tlsConn = c
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("TLS handshake failed")
		if state.hasWorkingDirectory() {
			teardown(ctx, cfg, apps, id, logger)
		}
		return err
	}
	state = StateNegotiated
	logger.Debug().Str("state", state.String()).Msg("TLS handshake complete")

	connState := tlsConn.ConnectionState()
	if err := emit(cfg.Sink, negotiatedRecord{
		TLSVersion: tlsVersionName(connState.Version),
		Cipher:     cipherName(connState),
	}); err != nil {
		if state.hasWorkingDirectory() {
			teardown(ctx, cfg, apps, id, logger)
		}
		return err
	}

	state = StateForwarding
	logger.Debug().Str("state", state.String()).Msg("forwarding bytes")
	fwdErr := timed(cfg.Metrics, metrics.PhaseForward, func() error {
		return forward(tlsConn, cfg.Stdin, cfg.Stdout)
	})
	if fwdErr != nil {
		logger.Error().Err(fwdErr).Msg("forwarding ended with an error")
	}

	if err := emit(cfg.Sink, cleaningUpRecord{ID: string(id)}); err != nil && fwdErr == nil {
		fwdErr = err
	}

	state = StateTearingDown
	if state.hasWorkingDirectory() {
		teardown(ctx, cfg, apps, id, logger)
	}

	if fwdErr != nil {
		state = StateAborted
		logger.Error().Str("state", state.String()).Msg("session aborted")
		return fwdErr
	}

	state = StateEnded
	logger.Debug().Str("state", state.String()).Msg("session ended")
	return nil
}

// teardown unconditionally builds and best-effort uploads the end
// package: its result is swallowed, since the working directory it
// targets may already be gone (spec.md §4.5, §6). It is always called
// once the start package may have landed on the device (StateProbed or
// later), regardless of how the session ended.
func teardown(ctx context.Context, cfg Config, apps *vapix.Applications, id shellpkg.SessionID, logger zerolog.Logger) {
	endPkg, err := shellpkg.BuildEndPackage(id)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build end package; leaving remote state for manual cleanup")
		return
	}

	stop := timerOrNoop(cfg.Metrics, metrics.PhaseTeardown)
	defer stop()

	if err := apps.Upload(ctx, endPkg); err != nil {
		logger.Warn().Err(err).Msg("end package upload failed; device may need manual cleanup")
	}
}

func timerOrNoop(rec *metrics.Recorder, phase metrics.Phase) func() {
	if rec == nil {
		return func() {}
	}
	return rec.Timer(phase)
}

func resolveAddr(ctx context.Context, host string, port uint16) (*net.TCPAddr, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, &ErrHostnameResolution{Host: host, Err: err}
	}
	if len(ips) == 0 {
		return nil, &ErrHostnameResolution{Host: host, Err: fmt.Errorf("no addresses found")}
	}
	return &net.TCPAddr{IP: ips[0].IP, Port: int(port)}, nil
}

func wrapAPIErr(err error) error {
	if err == vapix.ErrDeviceNotSupported {
		return ErrDeviceNotSupported
	}
	return &ErrAPI{Err: err}
}

func timed(rec *metrics.Recorder, phase metrics.Phase, fn func() error) error {
	if rec == nil {
		return fn()
	}
	stop := rec.Timer(phase)
	defer stop()
	return fn()
}
