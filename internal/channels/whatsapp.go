package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/agentgate/internal/signature"
)

// WhatsApp implements the Meta/WhatsApp Cloud API webhook contract:
// HMAC-SHA256(appSecret, body) in X-Hub-Signature-256 with a "sha256="
// prefix, and a GET verification handshake using hub.mode/hub.verify_token.
type WhatsApp struct {
	AppSecret   string
	VerifyToken string
	AccessToken string
	PhoneID     string
	HTTP        *http.Client
}

func (w *WhatsApp) Name() string     { return "whatsapp" }
func (w *WhatsApp) Configured() bool { return w.AppSecret != "" || w.AccessToken != "" }

func (w *WhatsApp) VerifySignature(header http.Header, body []byte) bool {
	if w.AppSecret == "" {
		return true
	}
	return signature.VerifyWhatsApp([]byte(w.AppSecret), body, header.Get("X-Hub-Signature-256"))
}

// VerifyHandshake implements the GET /webhook/whatsapp verification
// challenge: echo hub.challenge back only if hub.mode=="subscribe" and
// hub.verify_token matches, constant-time.
func (w *WhatsApp) VerifyHandshake(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" {
		return "", false
	}
	if !signature.ConstantTimeEqual(token, w.VerifyToken) {
		return "", false
	}
	return challenge, true
}

func (w *WhatsApp) ParseWebhookPayload(payload map[string]any) ([]Message, error) {
	var out []Message
	entries, _ := payload["entry"].([]any)
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		changes, _ := entry["changes"].([]any)
		for _, c := range changes {
			change, _ := c.(map[string]any)
			value, _ := change["value"].(map[string]any)
			messages, _ := value["messages"].([]any)
			for _, m := range messages {
				msg, _ := m.(map[string]any)
				text, _ := msg["text"].(map[string]any)
				body, _ := text["body"].(string)
				id, _ := msg["id"].(string)
				from, _ := msg["from"].(string)
				if body == "" {
					continue
				}
				out = append(out, Message{SenderID: from, ID: id, Text: body, Raw: msg})
			}
		}
	}
	return out, nil
}

func (w *WhatsApp) Send(ctx context.Context, recipientID, text string) error {
	if w.AccessToken == "" || w.PhoneID == "" {
		return fmt.Errorf("whatsapp: not configured for sending")
	}
	url := fmt.Sprintf("https://graph.facebook.com/v20.0/%s/messages", w.PhoneID)
	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipientID,
		"text":              map[string]string{"body": text},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.AccessToken)

	client := w.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp: send status %d", resp.StatusCode)
	}
	return nil
}
