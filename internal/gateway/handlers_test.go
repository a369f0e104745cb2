package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agentgate/internal/agent"
	"github.com/nextlevelbuilder/agentgate/internal/channels"
	"github.com/nextlevelbuilder/agentgate/internal/chatapi"
	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/idempotency"
	"github.com/nextlevelbuilder/agentgate/internal/observability"
	"github.com/nextlevelbuilder/agentgate/internal/pairing"
	"github.com/nextlevelbuilder/agentgate/internal/providers"
	"github.com/nextlevelbuilder/agentgate/internal/ratelimit"
)

type fakeProvider struct{ reply string }

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }
func (f *fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{Content: f.reply}, nil
}

type fakeChannel struct {
	name    string
	replies []string
}

func (f *fakeChannel) Name() string       { return f.name }
func (f *fakeChannel) Configured() bool   { return true }
func (f *fakeChannel) VerifySignature(http.Header, []byte) bool { return true }
func (f *fakeChannel) ParseWebhookPayload(payload map[string]any) ([]channels.Message, error) {
	text, _ := payload["text"].(string)
	if text == "" {
		return nil, nil
	}
	return []channels.Message{{SenderID: "u1", Text: text}}, nil
}
func (f *fakeChannel) Send(ctx context.Context, recipientID, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func newTestState() *State {
	pg := pairing.New(true, nil)
	return &State{
		Config:                &config.Config{},
		Pairing:               pg,
		RateLimiter:           ratelimit.NewGateway(0, 0, 100),
		Idempotency:           idempotency.New(60*time.Second, 100),
		Agent:                 agent.NewWithProvider(&fakeProvider{reply: "hi there"}, ""),
		Observer:              observability.Noop{},
		Channels:              map[string]channels.Channel{"fake": &fakeChannel{name: "fake"}},
		TrustForwardedHeaders: false,
		PersistTokens:         func([]string) error { return nil },
	}
}

func TestHealthEndpoint(t *testing.T) {
	state := newTestState()
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPairRejectsWrongCodeThenSucceedsWithRightOne(t *testing.T) {
	state := newTestState()
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	bad := httptest.NewRequest(http.MethodPost, "/pair", nil)
	bad.Header.Set("X-Pairing-Code", "000000")
	bad.RemoteAddr = "127.0.0.1:1111"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, bad)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong code, got %d: %s", rec.Code, rec.Body.String())
	}

	// Pull the current code directly from the guard (only test-reachable
	// via RegenerateCode, since the constructor mints one silently).
	code, err := state.Pairing.RegenerateCode()
	if err != nil {
		t.Fatalf("regenerate code: %v", err)
	}

	good := httptest.NewRequest(http.MethodPost, "/pair", nil)
	good.Header.Set("X-Pairing-Code", code)
	good.RemoteAddr = "127.0.0.1:2222"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, good)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for correct code, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["paired"] != true || resp["token"] == "" {
		t.Fatalf("unexpected pair response: %+v", resp)
	}
}

// bearerFor mints a valid pairing token for g and returns it, so tests can
// exercise the authenticated path without disabling pairing outright.
func bearerFor(t *testing.T, g *pairing.Guard) string {
	t.Helper()
	code, err := g.RegenerateCode()
	if err != nil {
		t.Fatalf("regenerate code: %v", err)
	}
	token, err := g.TryPair(code, "test")
	if err != nil || token == "" {
		t.Fatalf("mint token: %v (token=%q)", err, token)
	}
	return token
}

func TestWebhookDispatchesToAgentAndReplies(t *testing.T) {
	state := newTestState()
	ch := state.Channels["fake"].(*fakeChannel)
	// Pairing is required by default; the channel signature is an
	// additional proof on top of the bearer token, not a substitute.
	token := bearerFor(t, state.Pairing)
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	body, _ := json.Marshal(map[string]any{"text": "hello agent"})
	req := httptest.NewRequest(http.MethodPost, "/webhook?channel=fake", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.RemoteAddr = "127.0.0.1:3333"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(ch.replies) != 1 || ch.replies[0] != "hi there" {
		t.Fatalf("expected one reply 'hi there', got %+v", ch.replies)
	}
}

func TestWebhookRejectsMissingBearerEvenWithValidSignature(t *testing.T) {
	state := newTestState()
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	body, _ := json.Marshal(map[string]any{"text": "hello agent"})
	req := httptest.NewRequest(http.MethodPost, "/webhook?channel=fake", bytes.NewReader(body))
	req.RemoteAddr = "127.0.0.1:3334"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookRejectsUnknownChannel(t *testing.T) {
	state := newTestState()
	token := bearerFor(t, state.Pairing)
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	req := httptest.NewRequest(http.MethodPost, "/webhook?channel=nope", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	req.RemoteAddr = "127.0.0.1:4444"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWebhookGenericPathRepliesFlat(t *testing.T) {
	state := newTestState()
	token := bearerFor(t, state.Pairing)
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	body, _ := json.Marshal(map[string]any{"message": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["response"] != "hi there" || resp["model"] != "fake-model" {
		t.Fatalf("expected flat {response, model} reply, got %+v", resp)
	}
}

func TestWebhookDuplicateIdempotencyKeyIsFlagged(t *testing.T) {
	state := newTestState()
	token := bearerFor(t, state.Pairing)
	mux := BuildMux(state, &chatapi.State{Pairing: state.Pairing})

	body, _ := json.Marshal(map[string]any{"message": "hi"})

	first := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	first.Header.Set("Authorization", "Bearer "+token)
	first.Header.Set("X-Idempotency-Key", "abc-123")
	first.RemoteAddr = "127.0.0.1:6666"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	second := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	second.Header.Set("Authorization", "Bearer "+token)
	second.Header.Set("X-Idempotency-Key", "abc-123")
	second.RemoteAddr = "127.0.0.1:6666"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected duplicate to still 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "duplicate" || resp["idempotent"] != true {
		t.Fatalf("expected {status:duplicate, idempotent:true}, got %+v", resp)
	}
}
