package channels

import (
	"net/http"
	"testing"
)

func TestWhatsAppVerifySignatureRequiresPrefix(t *testing.T) {
	w := &WhatsApp{AppSecret: "secret"}
	h := http.Header{}
	h.Set("X-Hub-Signature-256", "not-hex-and-no-prefix")
	if w.VerifySignature(h, []byte("{}")) {
		t.Fatal("expected malformed signature header to fail verification")
	}
}

func TestWhatsAppVerifySignaturePassesWhenNoSecretConfigured(t *testing.T) {
	w := &WhatsApp{}
	if !w.VerifySignature(http.Header{}, []byte("{}")) {
		t.Fatal("expected no-secret channel to accept any signature")
	}
}

func TestWhatsAppVerifyHandshake(t *testing.T) {
	w := &WhatsApp{VerifyToken: "tok"}
	if _, ok := w.VerifyHandshake("subscribe", "wrong", "chal"); ok {
		t.Fatal("expected wrong token to fail")
	}
	challenge, ok := w.VerifyHandshake("subscribe", "tok", "chal")
	if !ok || challenge != "chal" {
		t.Fatalf("expected handshake to succeed and echo challenge, got %q %v", challenge, ok)
	}
}

func TestWhatsAppParseWebhookPayload(t *testing.T) {
	w := &WhatsApp{}
	payload := map[string]any{
		"entry": []any{
			map[string]any{
				"changes": []any{
					map[string]any{
						"value": map[string]any{
							"messages": []any{
								map[string]any{
									"id":   "m1",
									"from": "15551234",
									"text": map[string]any{"body": "hello"},
								},
							},
						},
					},
				},
			},
		},
	}
	msgs, err := w.ParseWebhookPayload(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hello" || msgs[0].SenderID != "15551234" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestDisabledChannelRejectsSend(t *testing.T) {
	d := Disabled{ChannelName: "slack"}
	if d.Configured() {
		t.Fatal("disabled channel must report unconfigured")
	}
	if err := d.Send(nil, "x", "y"); err == nil {
		t.Fatal("expected disabled channel Send to fail")
	}
}

func TestFeishuStubRequiresAppIDAndSecret(t *testing.T) {
	f := &FeishuStub{}
	if f.Configured() {
		t.Fatal("expected unconfigured stub with no app id/secret")
	}
	f = &FeishuStub{AppID: "a", AppSecret: "s"}
	if !f.Configured() {
		t.Fatal("expected stub to be configured once app id and secret are set")
	}
	if _, err := f.ParseWebhookPayload(nil); err == nil {
		t.Fatal("expected feishu webhook parsing to be rejected")
	}
	if err := f.Send(nil, "x", "y"); err == nil {
		t.Fatal("expected feishu send to be rejected")
	}
}

func TestZaloStubRequiresToken(t *testing.T) {
	z := &ZaloStub{}
	if z.Configured() {
		t.Fatal("expected unconfigured stub with no token")
	}
	z = &ZaloStub{Token: "tok"}
	if !z.Configured() {
		t.Fatal("expected stub to be configured once a token is set")
	}
	if _, err := z.ParseWebhookPayload(nil); err == nil {
		t.Fatal("expected zalo webhook parsing to be rejected")
	}
	if err := z.Send(nil, "x", "y"); err == nil {
		t.Fatal("expected zalo send to be rejected")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Fatalf("unexpected: %q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Fatalf("unexpected: %q", got)
	}
}
