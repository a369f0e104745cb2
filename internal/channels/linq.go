package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/agentgate/internal/signature"
)

// Linq signs webhook deliveries with HMAC-SHA256(secret, timestamp+body)
// in X-Webhook-Signature, with the timestamp carried in X-Webhook-Timestamp.
type Linq struct {
	SigningSecret string
	APIBaseURL    string
	APIToken      string
	HTTP          *http.Client
}

func (l *Linq) Name() string     { return "linq" }
func (l *Linq) Configured() bool { return l.SigningSecret != "" || l.APIToken != "" }

func (l *Linq) VerifySignature(header http.Header, body []byte) bool {
	if l.SigningSecret == "" {
		return true
	}
	timestamp := header.Get("X-Webhook-Timestamp")
	if timestamp == "" {
		return false
	}
	return signature.VerifyLinq([]byte(l.SigningSecret), timestamp, body, header.Get("X-Webhook-Signature"))
}

func (l *Linq) ParseWebhookPayload(payload map[string]any) ([]Message, error) {
	var out []Message
	messages, _ := payload["messages"].([]any)
	for _, m := range messages {
		msg, _ := m.(map[string]any)
		text, _ := msg["text"].(string)
		id, _ := msg["id"].(string)
		sender, _ := msg["sender"].(string)
		if text == "" {
			continue
		}
		out = append(out, Message{SenderID: sender, ID: id, Text: text, Raw: msg})
	}
	return out, nil
}

func (l *Linq) Send(ctx context.Context, recipientID, text string) error {
	if l.APIBaseURL == "" {
		return fmt.Errorf("linq: not configured for sending")
	}
	body := map[string]any{"to": recipientID, "text": text}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.APIBaseURL+"/messages", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+l.APIToken)
	}
	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("linq: send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("linq: send status %d", resp.StatusCode)
	}
	return nil
}
