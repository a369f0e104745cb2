// Package channels defines the webhook channel abstraction and the
// disabled-channel stubs for platforms the gateway recognizes in config
// but does not yet wire a live integration for.
package channels

import (
	"context"
	"net/http"
)

// Message is one inbound message extracted from a channel's webhook
// payload, normalized enough for the gateway to log, store, and reply to.
type Message struct {
	SenderID string
	ID       string
	Text     string
	Raw      map[string]any
}

// Channel is the interface every webhook-delivered messaging platform
// implements. Unlike a long-lived connection channel, webhook channels are
// stateless per-request: VerifySignature and ParseWebhookPayload are pure
// functions over a single HTTP request's body and headers.
type Channel interface {
	// Name returns the channel identifier used in config and logs.
	Name() string

	// Configured reports whether the operator has supplied the secrets
	// this channel needs to accept traffic.
	Configured() bool

	// VerifySignature checks a request's signature header(s) against the
	// configured shared secret. Channels with no signing scheme return true.
	VerifySignature(header http.Header, body []byte) bool

	// ParseWebhookPayload extracts zero or more inbound messages from a
	// decoded JSON webhook body. An empty result with a nil error means
	// the payload was valid but carried no user message (e.g. a delivery
	// receipt) and should still be acknowledged with 200.
	ParseWebhookPayload(payload map[string]any) ([]Message, error)

	// Send delivers a reply back to the sender on this channel.
	Send(ctx context.Context, recipientID, text string) error
}

// Disabled implements Channel for a platform that is recognized but not
// configured: every webhook addressed to it is rejected at admission
// (handled by the gateway's 404-if-not-configured rule) and Send always
// fails loudly rather than silently dropping a reply.
type Disabled struct {
	ChannelName string
}

func (d Disabled) Name() string       { return d.ChannelName }
func (d Disabled) Configured() bool   { return false }
func (d Disabled) VerifySignature(http.Header, []byte) bool { return false }

func (d Disabled) ParseWebhookPayload(map[string]any) ([]Message, error) {
	return nil, nil
}

func (d Disabled) Send(context.Context, string, string) error {
	return &disabledError{channel: d.ChannelName}
}

type disabledError struct{ channel string }

func (e *disabledError) Error() string {
	return "channel " + e.channel + " is not configured"
}

// Truncate shortens a string to maxLen runes, appending "..." if cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
