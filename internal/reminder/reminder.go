// Package reminder recognizes reminder requests embedded in free-form chat
// messages and extracts a delay and a message to deliver once it elapses.
package reminder

import (
	"strconv"
	"strings"
	"time"
)

// Intent is a parsed reminder request.
type Intent struct {
	Delay      time.Duration
	HumanDelay string
	Message    string
}

// Parse tries each recognized reminder phrasing in turn and returns the
// first match. It returns ok=false if none match.
func Parse(text string) (Intent, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Intent{}, false
	}

	if intent, ok := parseSlash(trimmed); ok {
		return intent, true
	}
	if intent, ok := parseNaturalLanguage(trimmed); ok {
		return intent, true
	}
	if intent, ok := parseSetReminder(trimmed); ok {
		return intent, true
	}
	return Intent{}, false
}

const slashPrefix = "/remind "

func parseSlash(trimmed string) (Intent, bool) {
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, slashPrefix) {
		return Intent{}, false
	}
	rest := trimmed[len(slashPrefix):]

	delay, human, remainder, ok := parseLeadingDelay(rest)
	if !ok {
		return Intent{}, false
	}
	message := normalizeMessage(remainder)
	if message == "" {
		return Intent{}, false
	}
	return Intent{Delay: delay, HumanDelay: human, Message: message}, true
}

func parseNaturalLanguage(trimmed string) (Intent, bool) {
	lower := strings.ToLower(trimmed)
	const phrase = "remind me"
	remindPos := strings.Index(lower, phrase)
	if remindPos < 0 {
		return Intent{}, false
	}
	remindPhraseEnd := remindPos + len(phrase)

	inPos := strings.LastIndex(lower, " in ")
	if inPos < 0 {
		return Intent{}, false
	}
	head := strings.TrimSpace(trimmed[:inPos])
	tail := strings.TrimSpace(trimmed[inPos+len(" in "):])

	delay, human, tailAfterDelay, ok := parseLeadingDelay(tail)
	if !ok {
		return Intent{}, false
	}

	var message string
	if len(head) >= remindPhraseEnd {
		message = normalizeMessage(head[remindPhraseEnd:])
	} else {
		remindTail := strings.TrimSpace(trimmed[remindPhraseEnd:])
		message = normalizeMessage(remindTail)
	}
	if message == "" {
		message = normalizeMessage(tailAfterDelay)
	}
	if message == "" {
		return Intent{}, false
	}
	return Intent{Delay: delay, HumanDelay: human, Message: message}, true
}

var reminderMarkers = []string{
	"set a reminder to",
	"set a reminder for",
	"set reminder to",
	"set reminder for",
	"reminder to",
	"reminder for",
}

func parseSetReminder(trimmed string) (Intent, bool) {
	lower := strings.ToLower(trimmed)
	if !strings.Contains(lower, "reminder") {
		return Intent{}, false
	}

	inPos := strings.LastIndex(lower, " in ")
	if inPos < 0 {
		return Intent{}, false
	}
	head := strings.TrimSpace(trimmed[:inPos])
	tail := strings.TrimSpace(trimmed[inPos+len(" in "):])

	delay, human, tailAfterDelay, ok := parseLeadingDelay(tail)
	if !ok {
		return Intent{}, false
	}

	lowerHead := strings.ToLower(head)
	var candidate string
	found := false
	for _, marker := range reminderMarkers {
		idx := strings.Index(lowerHead, marker)
		if idx < 0 {
			continue
		}
		candidate = head[idx+len(marker):]
		found = true
		break
	}
	if !found {
		candidate = head
	}

	message := normalizeMessage(candidate)
	if message == "" {
		message = normalizeMessage(tailAfterDelay)
	}
	if message == "" {
		return Intent{}, false
	}
	return Intent{Delay: delay, HumanDelay: human, Message: message}, true
}

// normalizeMessage trims whitespace, strips a single leading "about " or
// "to " filler, and trims trailing punctuation.
func normalizeMessage(raw string) string {
	s := strings.TrimSpace(raw)

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "about "):
		s = s[len("about "):]
	case strings.HasPrefix(lower, "to "):
		s = s[len("to "):]
	}

	s = strings.TrimRight(s, ".!?,;")
	return strings.TrimSpace(s)
}

// parseLeadingDelay parses a leading "<digits><unit>" token (e.g. "10m",
// "5 minutes") from the start of input, returning the duration, a human
// label, and the remaining text.
func parseLeadingDelay(input string) (time.Duration, string, string, bool) {
	s := strings.TrimLeft(input, " \t")

	digitLen := 0
	for digitLen < len(s) && s[digitLen] >= '0' && s[digitLen] <= '9' {
		digitLen++
	}
	if digitLen == 0 {
		return 0, "", "", false
	}
	amount, err := strconv.ParseInt(s[:digitLen], 10, 64)
	if err != nil || amount <= 0 {
		return 0, "", "", false
	}

	rest := strings.TrimLeft(s[digitLen:], " \t")
	unitLen := 0
	for unitLen < len(rest) && isASCIIAlpha(rest[unitLen]) {
		unitLen++
	}
	if unitLen == 0 {
		return 0, "", "", false
	}
	unit := strings.ToLower(rest[:unitLen])
	remainder := strings.TrimLeft(rest[unitLen:], " \t")

	var d time.Duration
	var label string
	switch unit {
	case "s", "sec", "secs", "second", "seconds":
		d = time.Duration(amount) * time.Second
		label = "second"
	case "m", "min", "mins", "minute", "minutes":
		d = time.Duration(amount) * time.Minute
		label = "minute"
	case "h", "hr", "hrs", "hour", "hours":
		d = time.Duration(amount) * time.Hour
		label = "hour"
	case "d", "day", "days":
		d = time.Duration(amount) * 24 * time.Hour
		label = "day"
	default:
		return 0, "", "", false
	}

	plural := "s"
	if amount == 1 {
		plural = ""
	}
	human := strconv.FormatInt(amount, 10) + " " + label + plural
	return d, human, remainder, true
}

func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
