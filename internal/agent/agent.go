// Package agent answers a single chat turn in-process, by selecting a
// configured LLM provider and wrapping its error surface for callers that
// must not leak upstream API details (keys, request IDs, stack frames) to
// a remote chat channel.
package agent

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/providers"
)

// Agent answers chat turns by delegating to a single configured provider.
type Agent struct {
	provider     providers.Provider
	model        string
	temperature  float64
	systemPrompt string
}

// New builds an Agent from the providers section of the config, selecting
// whichever provider is named by cfg.Providers.Default.
func New(cfg *config.ProvidersConfig, systemPrompt string) (*Agent, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	return &Agent{
		provider:     provider,
		model:        model,
		temperature:  cfg.Temperature,
		systemPrompt: systemPrompt,
	}, nil
}

// NewWithProvider builds an Agent around an already-constructed provider,
// bypassing config-driven selection. Exercised directly by the chat worker
// and gateway's test suites, which fake the provider to avoid live calls.
func NewWithProvider(provider providers.Provider, systemPrompt string) *Agent {
	return &Agent{
		provider:     provider,
		model:        provider.DefaultModel(),
		systemPrompt: systemPrompt,
	}
}

func buildProvider(cfg *config.ProvidersConfig) (providers.Provider, error) {
	switch cfg.Default {
	case "", "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("agent: anthropic provider selected but no API key configured")
		}
		opts := []providers.AnthropicOption{}
		if cfg.Model != "" {
			opts = append(opts, providers.WithAnthropicModel(cfg.Model))
		}
		if cfg.Anthropic.APIBase != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(cfg.Anthropic.APIBase))
		}
		return providers.NewAnthropicProvider(cfg.Anthropic.APIKey, opts...), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("agent: openai provider selected but no API key configured")
		}
		return providers.NewOpenAIProvider("openai", cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.Model), nil
	case "dashscope":
		if cfg.DashScope.APIKey == "" {
			return nil, fmt.Errorf("agent: dashscope provider selected but no API key configured")
		}
		return providers.NewDashScopeProvider(cfg.DashScope.APIKey, cfg.DashScope.APIBase, cfg.Model), nil
	default:
		return nil, fmt.Errorf("agent: unknown provider %q", cfg.Default)
	}
}

// Process answers a single chat turn and returns the reply text.
func (a *Agent) Process(ctx context.Context, history []providers.Message, message string) (string, error) {
	messages := make([]providers.Message, 0, len(history)+2)
	if a.systemPrompt != "" {
		messages = append(messages, providers.Message{Role: "system", Content: a.systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, providers.Message{Role: "user", Content: message})

	resp, err := a.provider.Chat(ctx, providers.ChatRequest{
		Messages: messages,
		Model:    a.model,
		Options:  map[string]interface{}{"temperature": a.temperature},
	})
	if err != nil {
		return "", SanitizeAPIError(a.provider.Name(), err)
	}
	return SanitizeReplyText(resp.Content), nil
}

// Name returns the identifier of the underlying provider, used in logs and
// observer events.
func (a *Agent) Name() string { return a.provider.Name() }

// Model returns the model name requests are sent with.
func (a *Agent) Model() string { return a.model }
