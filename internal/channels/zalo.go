package channels

import (
	"context"
	"fmt"
	"net/http"
)

// ZaloStub represents Zalo as a channel the gateway recognizes in config
// but does not run a live integration for: Zalo's personal-account
// protocol needs a signed-in session rather than a bot token, which is out
// of scope for a stateless webhook gateway.
type ZaloStub struct {
	Token string
}

func (z *ZaloStub) Name() string     { return "zalo" }
func (z *ZaloStub) Configured() bool { return z.Token != "" }

func (z *ZaloStub) VerifySignature(http.Header, []byte) bool { return false }

func (z *ZaloStub) ParseWebhookPayload(map[string]any) ([]Message, error) {
	return nil, fmt.Errorf("zalo: inbound webhooks are not supported in this deployment")
}

func (z *ZaloStub) Send(context.Context, string, string) error {
	return fmt.Errorf("zalo: outbound send is not supported in this deployment")
}
