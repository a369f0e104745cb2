package channels

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mymmrac/telego"
)

// TelegramStub represents Telegram as a channel the gateway recognizes in
// config but, like Discord, does not run a live long-poll/webhook listener
// for in this deployment — only outbound replies via bot token are wired.
type TelegramStub struct {
	BotToken string
}

func (t *TelegramStub) Name() string     { return "telegram" }
func (t *TelegramStub) Configured() bool { return t.BotToken != "" }

func (t *TelegramStub) VerifySignature(header http.Header, _ []byte) bool {
	// No Telegram webhook secret token is checked: every request passes.
	return true
}

func (t *TelegramStub) ParseWebhookPayload(map[string]any) ([]Message, error) {
	return nil, fmt.Errorf("telegram: inbound webhooks are not enabled in this deployment")
}

func (t *TelegramStub) Send(_ context.Context, recipientChatID, text string) error {
	if t.BotToken == "" {
		return fmt.Errorf("telegram: not configured")
	}
	bot, err := telego.NewBot(t.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: build bot: %w", err)
	}
	chatID, err := strconv.ParseInt(recipientChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", recipientChatID, err)
	}
	_, err = bot.SendMessage(context.Background(), &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram: send failed: %w", err)
	}
	return nil
}
