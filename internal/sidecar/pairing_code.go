package sidecar

import (
	"regexp"
	"strings"
)

var sixDigitRun = regexp.MustCompile(`\d{6}`)

// ExtractPairingCode scrapes a 6-digit pairing code out of one line of a
// daemon's boot log. It recognizes two shapes: an explicit
// "X-Pairing-Code: 123456" line, or a bordered/table line that happens to
// contain exactly one run of 6 consecutive digits (how the daemon prints
// the code inside a boxed banner). Lines with more than one 6-digit run
// are ambiguous and rejected, since that's more likely a timestamp or PID
// than a code.
func ExtractPairingCode(line string) (string, bool) {
	if idx := strings.Index(strings.ToLower(line), "x-pairing-code:"); idx >= 0 {
		rest := line[idx+len("x-pairing-code:"):]
		if m := sixDigitRun.FindString(rest); m != "" {
			return m, true
		}
		return "", false
	}

	matches := sixDigitRun.FindAllString(line, -1)
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

// WatchForPairingCode wraps an onLogLine callback (as passed to
// NewSupervisor) and reports the first pairing code it observes on found.
// Only ever calls found once; subsequent log lines are ignored after a
// code has been scraped.
func WatchForPairingCode(found func(code string)) (onLogLine func(source, line string)) {
	var reported bool
	return func(source, line string) {
		if reported {
			return
		}
		if code, ok := ExtractPairingCode(line); ok {
			reported = true
			found(code)
		}
	}
}
