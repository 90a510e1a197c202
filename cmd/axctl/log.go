package main

import (
	"fmt"
	"hash/maphash"
	"net/url"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/trunnion/axctl/pkg/vapix"
)

var logCmd = &cobra.Command{
	Use:   "log <camera-url>",
	Short: "Tail the camera's system log",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntP("number", "n", 20, "number of existing log lines to show")
	logCmd.Flags().BoolP("follow", "f", false, "keep polling for new log lines")
}

func runLog(cmd *cobra.Command, args []string) error {
	cameraURL, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid camera URL %q: %w", args[0], err)
	}

	number, _ := cmd.Flags().GetInt("number")
	follow, _ := cmd.Flags().GetBool("follow")

	device := vapix.New(cameraURL)
	sys := device.SystemLog()
	color := isatty.IsTerminal(os.Stdout.Fd())

	seen := newSeenSet()

	entries, err := sys.Entries(cmd.Context(), number)
	if err != nil {
		return fmt.Errorf("fetching system log: %w", err)
	}
	for _, e := range entries {
		seen.mark(e)
		printLogEntry(e, color)
	}

	if !follow {
		return nil
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
			entries, err := sys.Entries(cmd.Context(), 0)
			if err != nil {
				return fmt.Errorf("fetching system log: %w", err)
			}
			for _, e := range entries {
				if seen.seen(e) {
					continue
				}
				seen.mark(e)
				printLogEntry(e, color)
			}
		}
	}
}

// seenSet deduplicates already-printed log entries across polls by a
// content hash, since the appliance's log endpoint has no cursor/offset
// parameter to request only new lines.
type seenSet struct {
	seed  maphash.Seed
	marks map[uint64]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{seed: maphash.MakeSeed(), marks: make(map[uint64]struct{})}
}

func (s *seenSet) hash(e vapix.LogEntry) uint64 {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.WriteString(e.Timestamp.String())
	_, _ = h.WriteString(e.Hostname)
	_, _ = h.WriteString(e.Source)
	_, _ = h.WriteString(e.Message)
	return h.Sum64()
}

func (s *seenSet) seen(e vapix.LogEntry) bool {
	_, ok := s.marks[s.hash(e)]
	return ok
}

func (s *seenSet) mark(e vapix.LogEntry) {
	s.marks[s.hash(e)] = struct{}{}
}

// ansi color codes for log-level highlighting, used only when stdout is a
// terminal; no third-party styling library in the pack forces a specific
// choice here.
const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiReset  = "\x1b[0m"
)

func printLogEntry(e vapix.LogEntry, color bool) {
	if !color {
		fmt.Printf("%s %s %s: %s\n", e.Timestamp.Format(time.Stamp), e.Hostname, e.Source, e.Message)
		return
	}

	code := ansiBlue
	switch e.Level {
	case "err", "error", "crit", "alert", "emerg":
		code = ansiRed
	case "warning", "warn":
		code = ansiYellow
	}

	fmt.Printf("%s%s %s %s: %s%s\n", code, e.Timestamp.Format(time.Stamp), e.Hostname, e.Source, e.Message, ansiReset)
}
