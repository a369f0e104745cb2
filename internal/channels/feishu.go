package channels

import (
	"context"
	"fmt"
	"net/http"
)

// FeishuStub represents Feishu/Lark as a channel the gateway recognizes in
// config but has no live SDK integration for: no library in this stack
// speaks Feishu's event-callback encryption scheme, so both directions are
// refused rather than half-implemented.
type FeishuStub struct {
	AppID     string
	AppSecret string
}

func (f *FeishuStub) Name() string     { return "feishu" }
func (f *FeishuStub) Configured() bool { return f.AppID != "" && f.AppSecret != "" }

func (f *FeishuStub) VerifySignature(http.Header, []byte) bool { return false }

func (f *FeishuStub) ParseWebhookPayload(map[string]any) ([]Message, error) {
	return nil, fmt.Errorf("feishu: inbound event callbacks are not supported in this deployment")
}

func (f *FeishuStub) Send(context.Context, string, string) error {
	return fmt.Errorf("feishu: outbound send is not supported in this deployment")
}
