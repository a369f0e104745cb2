package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/agentgate/internal/signature"
)

// NextcloudTalk signs webhook deliveries with
// HMAC-SHA256(secret, random+body) in X-Nextcloud-Talk-Signature, with the
// salt carried in X-Nextcloud-Talk-Random.
type NextcloudTalk struct {
	WebhookSecret string
	BaseURL       string
	BotToken      string
	HTTP          *http.Client
}

func (n *NextcloudTalk) Name() string     { return "nextcloud_talk" }
func (n *NextcloudTalk) Configured() bool { return n.WebhookSecret != "" || n.BotToken != "" }

func (n *NextcloudTalk) VerifySignature(header http.Header, body []byte) bool {
	if n.WebhookSecret == "" {
		return true
	}
	return signature.VerifyNextcloudTalk([]byte(n.WebhookSecret), header.Get("X-Nextcloud-Talk-Random"), body, header.Get("X-Nextcloud-Talk-Signature"))
}

func (n *NextcloudTalk) ParseWebhookPayload(payload map[string]any) ([]Message, error) {
	msgType, _ := payload["type"].(string)
	if msgType != "" && msgType != "Create" {
		return nil, nil
	}
	message, _ := payload["message"].(map[string]any)
	if message == nil {
		return nil, nil
	}
	text, _ := message["message"].(string)
	id, _ := message["id"].(string)
	actor, _ := message["actorId"].(string)
	if text == "" {
		return nil, nil
	}
	return []Message{{SenderID: actor, ID: id, Text: text, Raw: message}}, nil
}

func (n *NextcloudTalk) Send(ctx context.Context, recipientID, text string) error {
	if n.BaseURL == "" {
		return fmt.Errorf("nextcloud_talk: not configured for sending")
	}
	body := map[string]any{"message": text}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/ocs/v2.php/apps/spreed/api/v1/chat/%s", n.BaseURL, recipientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OCS-APIRequest", "true")
	if n.BotToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.BotToken)
	}
	client := n.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("nextcloud_talk: send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nextcloud_talk: send status %d", resp.StatusCode)
	}
	return nil
}
