// Package config defines and loads the gateway's configuration.
package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON, matching
// the loose shape some operators hand-write into config files.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the gateway.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	DocStore  DocStoreConfig  `json:"docstore"`
	Sidecar   SidecarConfig   `json:"sidecar"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Tailscale TailscaleConfig `json:"tailscale,omitempty"`

	mu sync.RWMutex
}

// GatewayConfig controls the HTTP admission layer.
type GatewayConfig struct {
	Host                     string   `json:"host"`
	Port                     int      `json:"port"`
	PublicBindAllowed        bool     `json:"public_bind_allowed,omitempty"`
	TrustForwardedHeaders    bool     `json:"trust_forwarded_headers,omitempty"`
	RequirePairing           bool     `json:"require_pairing,omitempty"`
	PairedTokens             []string `json:"paired_tokens,omitempty"`
	WebhookSecret            string   `json:"-"` // never persisted in plaintext; see WebhookSecretHash
	WebhookSecretHash        string   `json:"webhook_secret_hash,omitempty"`
	RateLimitPairPerMin      int      `json:"rate_limit_pair_per_min,omitempty"`
	RateLimitWebhookPerMin   int      `json:"rate_limit_webhook_per_min,omitempty"`
	RateLimitMaxKeys         int      `json:"rate_limit_max_keys,omitempty"`
	RateLimitSweepIntervalSecs int    `json:"rate_limit_sweep_interval_secs,omitempty"`
	IdempotencyTTLSecs       int      `json:"idempotency_ttl_secs,omitempty"`
	IdempotencyMaxKeys       int      `json:"idempotency_max_keys,omitempty"`
	WorkspaceDir             string   `json:"workspace_dir"`
}

// DocStoreConfig points at the external JSON-record service backing chat,
// media, and journal storage.
type DocStoreConfig struct {
	BaseURL          string `json:"base_url,omitempty"`
	Token            string `json:"-"` // env-only, see ApplyEnvOverrides
	ChatCollection   string `json:"chat_collection,omitempty"`
	PollIntervalMs   int    `json:"poll_interval_ms,omitempty"`
	Disabled         bool   `json:"disabled,omitempty"`
}

// SidecarConfig controls the child-process supervisor.
type SidecarConfig struct {
	DocStoreBinary   string `json:"docstore_binary,omitempty"`
	AgentBinary      string `json:"agent_binary,omitempty"`
	DataDir          string `json:"data_dir,omitempty"`
	MigrationsDir    string `json:"migrations_dir,omitempty"`
	Disabled         bool   `json:"disabled,omitempty"`
}

// DatabaseConfig configures the optional local audit log.
type DatabaseConfig struct {
	Mode        string `json:"mode,omitempty"` // "embedded" (default, sqlite) or "managed" (postgres)
	PostgresDSN string `json:"-"`              // env-only
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// TailscaleConfig configures the optional tsnet tunnel provider — the one
// sanctioned way to bind a non-loopback address without an explicit
// operator opt-in.
type TailscaleConfig struct {
	Provider  string `json:"provider,omitempty"` // "none" (default) or "tsnet"
	Hostname  string `json:"hostname,omitempty"`
	StateDir  string `json:"state_dir,omitempty"`
	AuthKey   string `json:"-"` // env-only
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// TelemetryConfig: Enabled switches the gateway's observer from Noop to the
// Prometheus counters served at /metrics. The endpoint, protocol and other
// fields are loaded from config and env, but no trace exporter reads them.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// ChannelsConfig holds per-platform webhook credentials.
type ChannelsConfig struct {
	WhatsApp      WhatsAppConfig      `json:"whatsapp"`
	Linq          LinqConfig          `json:"linq"`
	Wati          WatiConfig          `json:"wati"`
	NextcloudTalk NextcloudTalkConfig `json:"nextcloud_talk"`
	Discord       DiscordConfig       `json:"discord"`
	Telegram      TelegramConfig      `json:"telegram"`
	Feishu        FeishuConfig        `json:"feishu"`
	Zalo          ZaloConfig          `json:"zalo"`
}

// FeishuConfig and ZaloConfig are recognized in config but have no live
// webhook/SDK integration wired in this deployment — see
// internal/channels' FeishuStub and ZaloStub.
type FeishuConfig struct {
	Enabled   bool   `json:"enabled"`
	AppID     string `json:"app_id,omitempty"`
	AppSecret string `json:"-"`
}

type ZaloConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"-"`
}

type WhatsAppConfig struct {
	Enabled     bool   `json:"enabled"`
	AppSecret   string `json:"-"` // env AGENTGATE_WHATSAPP_APP_SECRET only
	VerifyToken string `json:"verify_token,omitempty"`
	AccessToken string `json:"-"`
	PhoneID     string `json:"phone_id,omitempty"`
}

type LinqConfig struct {
	Enabled       bool   `json:"enabled"`
	SigningSecret string `json:"-"`
	APIBaseURL    string `json:"api_base_url,omitempty"`
	APIToken      string `json:"-"`
}

type WatiConfig struct {
	Enabled      bool   `json:"enabled"`
	WebhookToken string `json:"-"`
	APIBaseURL   string `json:"api_base_url,omitempty"`
	APIToken     string `json:"-"`
}

type NextcloudTalkConfig struct {
	Enabled       bool   `json:"enabled"`
	WebhookSecret string `json:"-"`
	BaseURL       string `json:"base_url,omitempty"`
	BotToken      string `json:"-"`
}

type DiscordConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"-"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"-"`
}

// ProvidersConfig configures the in-process LLM clients used to answer
// webhook chat turns directly (as opposed to the external agent daemon).
type ProvidersConfig struct {
	Default    string         `json:"default,omitempty"` // "anthropic", "openai", "dashscope"
	Model      string         `json:"model,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	DashScope  ProviderConfig `json:"dashscope"`
}

type ProviderConfig struct {
	APIKey  string `json:"-"`
	APIBase string `json:"api_base,omitempty"`
}

// IsManagedMode returns true if the audit log should use Postgres instead
// of the embedded SQLite database.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = src.Gateway
	c.Channels = src.Channels
	c.Providers = src.Providers
	c.DocStore = src.DocStore
	c.Sidecar = src.Sidecar
	c.Database = src.Database
	c.Telemetry = src.Telemetry
	c.Tailscale = src.Tailscale
}

// Snapshot returns a copy of the config safe to read without holding the
// lock further, mirroring how the gateway clones config before persisting
// pairing tokens back to disk.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := *c
	cp.mu = sync.RWMutex{}
	return cp
}
