package channels

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// DiscordStub represents Discord as a channel the gateway knows the shape
// of but does not run a live gateway connection for in this deployment: no
// inbound webhook exists for Discord (it uses a persistent gateway
// websocket, out of scope here), but an operator-configured bot token lets
// the worker push outbound replies into a channel by ID.
type DiscordStub struct {
	BotToken string
}

func (d *DiscordStub) Name() string     { return "discord" }
func (d *DiscordStub) Configured() bool { return d.BotToken != "" }

func (d *DiscordStub) VerifySignature(http.Header, []byte) bool { return false }

func (d *DiscordStub) ParseWebhookPayload(map[string]any) ([]Message, error) {
	return nil, fmt.Errorf("discord: inbound webhooks are not supported, use the bot gateway connection")
}

func (d *DiscordStub) Send(_ context.Context, recipientChannelID, text string) error {
	if d.BotToken == "" {
		return fmt.Errorf("discord: not configured")
	}
	sess, err := discordgo.New("Bot " + d.BotToken)
	if err != nil {
		return fmt.Errorf("discord: build session: %w", err)
	}
	_, err = sess.ChannelMessageSend(recipientChannelID, text)
	if err != nil {
		return fmt.Errorf("discord: send failed: %w", err)
	}
	return nil
}
