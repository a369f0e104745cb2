package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/agentgate/internal/signature"
)

// Wati authenticates inbound webhooks with a static shared token carried in
// the X-Wati-Token header, compared in constant time — no HMAC scheme.
type Wati struct {
	WebhookToken string
	APIBaseURL   string
	APIToken     string
	HTTP         *http.Client
}

func (w *Wati) Name() string     { return "wati" }
func (w *Wati) Configured() bool { return w.WebhookToken != "" || w.APIToken != "" }

func (w *Wati) VerifySignature(header http.Header, _ []byte) bool {
	if w.WebhookToken == "" {
		return true
	}
	return signature.ConstantTimeEqual(header.Get("X-Wati-Token"), w.WebhookToken)
}

func (w *Wati) ParseWebhookPayload(payload map[string]any) ([]Message, error) {
	text, _ := payload["text"].(string)
	if text == "" {
		body, _ := payload["waId"].(string)
		_ = body
		return nil, nil
	}
	id, _ := payload["id"].(string)
	sender, _ := payload["waId"].(string)
	return []Message{{SenderID: sender, ID: id, Text: text, Raw: payload}}, nil
}

func (w *Wati) Send(ctx context.Context, recipientID, text string) error {
	if w.APIBaseURL == "" {
		return fmt.Errorf("wati: not configured for sending")
	}
	body := map[string]any{"messageText": text}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/sendSessionMessage/%s", w.APIBaseURL, recipientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.APIToken)
	}
	client := w.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("wati: send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wati: send status %d", resp.StatusCode)
	}
	return nil
}
