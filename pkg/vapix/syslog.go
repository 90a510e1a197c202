package vapix

import (
	"strings"
	"time"
)

// parseSyslogLines turns the appliance's plain-text syslog dump into
// structured entries, best-effort: a line that doesn't match the expected
// "Mon _2 15:04:05 hostname tag: message" shape is kept with only its
// message and a level guessed from it populated, rather than dropped.
func parseSyslogLines(body []byte) []LogEntry {
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	entries := make([]LogEntry, 0, len(lines))

	for _, line := range lines {
		if line == "" {
			continue
		}
		entries = append(entries, parseSyslogLine(line))
	}
	return entries
}

func parseSyslogLine(line string) LogEntry {
	const tsLayout = "Jan _2 15:04:05"

	if len(line) > len(tsLayout) {
		if ts, err := time.Parse(tsLayout, line[:len(tsLayout)]); err == nil {
			rest := strings.TrimSpace(line[len(tsLayout):])
			hostname, message := splitFirstField(rest)
			return LogEntry{
				Timestamp: ts,
				Hostname:  hostname,
				Level:     guessLevel(message),
				Message:   message,
			}
		}
	}

	return LogEntry{Message: line, Level: guessLevel(line)}
}

func splitFirstField(s string) (field, rest string) {
	idx := strings.IndexByte(s, ' ')
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

func guessLevel(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "fatal") || strings.Contains(lower, "error"):
		return "error"
	case strings.Contains(lower, "warn"):
		return "warning"
	default:
		return "info"
	}
}
