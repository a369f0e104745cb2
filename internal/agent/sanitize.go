package agent

import (
	"regexp"
	"strings"
)

// sensitivePatterns match substrings that should never reach a chat
// channel verbatim when an upstream provider call fails: API keys,
// bearer tokens, and raw request URLs that may carry query-string secrets.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{10,}`),
	regexp.MustCompile(`(?i)api[_-]?key["']?\s*[:=]\s*["']?[A-Za-z0-9._-]{10,}`),
	regexp.MustCompile(`https?://\S+`),
}

// SanitizeAPIError strips anything from an upstream provider error that
// should not be echoed back to a remote chat channel, and prefixes the
// result with the provider name so the cause is still diagnosable from
// logs without exposing request internals to the end user.
func SanitizeAPIError(providerName string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, pat := range sensitivePatterns {
		msg = pat.ReplaceAllString(msg, "[redacted]")
	}
	msg = strings.TrimSpace(msg)
	return &apiError{provider: providerName, message: msg}
}

type apiError struct {
	provider string
	message  string
}

func (e *apiError) Error() string {
	return e.provider + " request failed: " + e.message
}

// thinkingTagPatterns match the <think>/<thinking> reasoning blocks some
// models emit inline, mirroring the teacher's assistant-content sanitization idiom.
var thinkingTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
}

// SanitizeReplyText cleans model output before it is sent back out over a
// channel: strips inline reasoning tags and collapses surrounding
// whitespace, but otherwise leaves content untouched (the gateway has no
// tool-calling loop to leave garbled tool-call artifacts behind).
func SanitizeReplyText(content string) string {
	if content == "" {
		return content
	}
	for _, pat := range thinkingTagPatterns {
		content = pat.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}
