package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/providers"
)

type fakeProvider struct {
	name    string
	content string
	err     error
}

func (f *fakeProvider) Name() string        { return f.name }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func (f *fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.content, FinishReason: "stop"}, nil
}

func TestProcessReturnsSanitizedContent(t *testing.T) {
	a := &Agent{provider: &fakeProvider{name: "fake", content: "<think>scratch</think>hello there"}}
	reply, err := a.Process(context.Background(), nil, "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestProcessWrapsProviderError(t *testing.T) {
	a := &Agent{provider: &fakeProvider{name: "fake", err: errors.New("leaked sk-abcdefghijklmnop")}}
	_, err := a.Process(context.Background(), nil, "hi")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got == "" || (err != nil && containsSecret(got)) {
		t.Fatalf("expected secret to be redacted from error, got %q", got)
	}
}

func containsSecret(s string) bool {
	for _, pat := range sensitivePatterns {
		if pat.MatchString(s) {
			return true
		}
	}
	return false
}

func TestBuildProviderRejectsUnknownName(t *testing.T) {
	_, err := buildProvider(&config.ProvidersConfig{Default: "nonsense"})
	if err == nil {
		t.Fatal("expected unknown provider to be rejected")
	}
}

func TestBuildProviderRequiresAPIKey(t *testing.T) {
	_, err := buildProvider(&config.ProvidersConfig{Default: "anthropic"})
	if err == nil {
		t.Fatal("expected missing api key to be rejected")
	}
}
