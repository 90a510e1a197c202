package session

import (
	"fmt"
	"io"

	"github.com/trunnion/axctl/pkg/output"
)

// startRecord is emitted once the pre-probe is about to begin.
type startRecord struct {
	ID        string `json:"id"`
	ShellAddr string `json:"shellAddr"`
}

func (r startRecord) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, " => starting a shell on %s (session %s)\n", r.ShellAddr, r.ID)
	return err
}
func (r startRecord) Level() output.Level { return output.LevelDebug }

// connectedRecord is emitted once the dial loop (or, losing the race, a
// spurious read) has produced a live TCP connection.
type connectedRecord struct {
	ID        string `json:"id"`
	ShellAddr string `json:"shellAddr"`
}

func (r connectedRecord) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, " => connected to %s (session %s)\n", r.ShellAddr, r.ID)
	return err
}
func (r connectedRecord) Level() output.Level { return output.LevelInfo }

// negotiatedRecord is emitted once the TLS handshake completes.
type negotiatedRecord struct {
	TLSVersion string  `json:"tlsVersion"`
	Cipher     *string `json:"cipher,omitempty"`
}

func (r negotiatedRecord) Print(w io.Writer) error {
	if r.Cipher != nil {
		_, err := fmt.Fprintf(w, " => negotiated %s with cipher %s\n", r.TLSVersion, *r.Cipher)
		return err
	}
	_, err := fmt.Fprintf(w, " => negotiated %s\n", r.TLSVersion)
	return err
}
func (r negotiatedRecord) Level() output.Level { return output.LevelDebug }

// cleaningUpRecord is emitted once forwarding has ended and teardown is
// about to be attempted.
type cleaningUpRecord struct {
	ID string `json:"id"`
}

func (r cleaningUpRecord) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\n => cleaning up session %s\n", r.ID)
	return err
}
func (r cleaningUpRecord) Level() output.Level { return output.LevelInfo }

// emit writes rec to sink. A failed diagnostic write is fatal (DESIGN.md:
// Open Question decisions), not swallowed, so it's wrapped with
// output.Fatalf before being surfaced as a terminal error.
func emit(sink *output.Sink, rec output.Record) error {
	if err := sink.Emit(rec); err != nil {
		return &ErrTerminal{Err: output.Fatalf("writing diagnostic record: %w", err)}
	}
	return nil
}
