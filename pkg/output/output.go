// Package output renders the operator-facing diagnostic records emitted by
// axctl commands: human-readable lines on a terminal, newline-delimited JSON
// otherwise. This is the "opaque sink accepting typed records" collaborator
// described for the session orchestrator; it is deliberately separate from
// the internal debug stream in pkg/log.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Level orders diagnostic records the same way the teacher's pkg/log orders
// severities, but from the operator's point of view: Debug records are the
// noisiest and only shown with --verbose, Error records are always shown.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// Record is a typed diagnostic message. Implementations live next to the
// command that emits them (see pkg/session for Start/Connected/Negotiated/
// CleaningUp).
type Record interface {
	// Print writes the human-readable rendering of the record to w.
	Print(w io.Writer) error
	// Level reports how important the record is, for --quiet/--verbose
	// filtering.
	Level() Level
}

// Sink writes Records either as formatted text (TTY) or as one JSON object
// per line (piped output), matching the teacher's convention of a single
// println-style call site per emitted event.
type Sink struct {
	w       io.Writer
	isTTY   bool
	minimum Level
}

// New creates a Sink. isTTY selects text vs. JSON rendering; minimum filters
// out records below the given level.
func New(w io.Writer, isTTY bool, minimum Level) *Sink {
	return &Sink{w: w, isTTY: isTTY, minimum: minimum}
}

// NewStdout builds a Sink around os.Stdout, auto-detecting TTY-ness the same
// way the teacher's CLI context does.
func NewStdout(minimum Level) *Sink {
	return New(os.Stdout, isTerminal(os.Stdout), minimum)
}

// Emit writes rec if its level passes the sink's threshold.
func (s *Sink) Emit(rec Record) error {
	if rec.Level() < s.minimum {
		return nil
	}

	if s.isTTY {
		return rec.Print(s.w)
	}

	enc := json.NewEncoder(s.w)
	return enc.Encode(rec)
}

// Fatalf is a convenience used by commands that must abort on a write
// failure: per spec, a failed diagnostic write is itself a fatal condition.
func Fatalf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
