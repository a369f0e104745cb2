package config

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// DefaultConfigDir is where the gateway looks for its workspace and config
// file absent an explicit override.
const DefaultConfigDir = "~/.agentgate"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:                       "127.0.0.1",
			Port:                       18790,
			RequirePairing:             true,
			RateLimitPairPerMin:        5,
			RateLimitWebhookPerMin:     60,
			RateLimitMaxKeys:           10000,
			RateLimitSweepIntervalSecs: 300,
			IdempotencyTTLSecs:         600,
			IdempotencyMaxKeys:         10000,
			WorkspaceDir:               DefaultConfigDir + "/workspace",
		},
		DocStore: DocStoreConfig{
			ChatCollection: "chat_messages",
			PollIntervalMs: 1500,
		},
		Sidecar: SidecarConfig{
			DataDir: DefaultConfigDir + "/data",
		},
		Database: DatabaseConfig{
			Mode:       "embedded",
			SQLitePath: DefaultConfigDir + "/audit.db",
		},
		Providers: ProvidersConfig{
			Default:     "anthropic",
			Model:       "claude-sonnet-4-5-20250929",
			Temperature: 0.7,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values, and are the only way to set secrets — none
// of them are persisted back to the JSON5 file in plaintext.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("AGENTGATE_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("AGENTGATE_ANTHROPIC_BASE_URL", &c.Providers.Anthropic.APIBase)
	envStr("AGENTGATE_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("AGENTGATE_OPENAI_BASE_URL", &c.Providers.OpenAI.APIBase)
	envStr("AGENTGATE_DASHSCOPE_API_KEY", &c.Providers.DashScope.APIKey)
	envStr("AGENTGATE_DASHSCOPE_BASE_URL", &c.Providers.DashScope.APIBase)
	envStr("AGENTGATE_PROVIDER", &c.Providers.Default)
	envStr("AGENTGATE_MODEL", &c.Providers.Model)

	envStr("AGENTGATE_GATEWAY_WEBHOOK_SECRET", &c.Gateway.WebhookSecret)
	if c.Gateway.WebhookSecret != "" {
		c.Gateway.WebhookSecretHash = HashSecret(c.Gateway.WebhookSecret)
	}
	envStr("AGENTGATE_HOST", &c.Gateway.Host)
	if v := os.Getenv("AGENTGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}
	envStr("AGENTGATE_WORKSPACE", &c.Gateway.WorkspaceDir)
	if v := os.Getenv("AGENTGATE_PAIRED_TOKENS"); v != "" {
		c.Gateway.PairedTokens = strings.Split(v, ",")
	}

	envStr("AGENTGATE_WHATSAPP_APP_SECRET", &c.Channels.WhatsApp.AppSecret)
	envStr("AGENTGATE_WHATSAPP_VERIFY_TOKEN", &c.Channels.WhatsApp.VerifyToken)
	envStr("AGENTGATE_WHATSAPP_ACCESS_TOKEN", &c.Channels.WhatsApp.AccessToken)
	envStr("AGENTGATE_WHATSAPP_PHONE_ID", &c.Channels.WhatsApp.PhoneID)
	envStr("AGENTGATE_LINQ_SIGNING_SECRET", &c.Channels.Linq.SigningSecret)
	envStr("AGENTGATE_LINQ_API_TOKEN", &c.Channels.Linq.APIToken)
	envStr("AGENTGATE_WATI_WEBHOOK_TOKEN", &c.Channels.Wati.WebhookToken)
	envStr("AGENTGATE_WATI_API_TOKEN", &c.Channels.Wati.APIToken)
	envStr("AGENTGATE_NEXTCLOUD_TALK_WEBHOOK_SECRET", &c.Channels.NextcloudTalk.WebhookSecret)
	envStr("AGENTGATE_NEXTCLOUD_TALK_BOT_TOKEN", &c.Channels.NextcloudTalk.BotToken)
	envStr("AGENTGATE_DISCORD_BOT_TOKEN", &c.Channels.Discord.BotToken)
	envStr("AGENTGATE_TELEGRAM_BOT_TOKEN", &c.Channels.Telegram.BotToken)
	envStr("AGENTGATE_FEISHU_APP_SECRET", &c.Channels.Feishu.AppSecret)
	envStr("AGENTGATE_ZALO_TOKEN", &c.Channels.Zalo.Token)

	// Auto-enable channels once their secrets arrive via env.
	if c.Channels.WhatsApp.AppSecret != "" || c.Channels.WhatsApp.AccessToken != "" {
		c.Channels.WhatsApp.Enabled = true
	}
	if c.Channels.Linq.SigningSecret != "" || c.Channels.Linq.APIToken != "" {
		c.Channels.Linq.Enabled = true
	}
	if c.Channels.Wati.WebhookToken != "" || c.Channels.Wati.APIToken != "" {
		c.Channels.Wati.Enabled = true
	}
	if c.Channels.NextcloudTalk.WebhookSecret != "" || c.Channels.NextcloudTalk.BotToken != "" {
		c.Channels.NextcloudTalk.Enabled = true
	}
	if c.Channels.Discord.BotToken != "" {
		c.Channels.Discord.Enabled = true
	}
	if c.Channels.Telegram.BotToken != "" {
		c.Channels.Telegram.Enabled = true
	}

	envStr("AGENTGATE_DOCSTORE_BASE_URL", &c.DocStore.BaseURL)
	envStr("AGENTGATE_DOCSTORE_TOKEN", &c.DocStore.Token)

	envStr("AGENTGATE_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("AGENTGATE_DB_MODE", &c.Database.Mode)

	envStr("AGENTGATE_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("AGENTGATE_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("AGENTGATE_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("AGENTGATE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AGENTGATE_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}

	envStr("AGENTGATE_TSNET_PROVIDER", &c.Tailscale.Provider)
	envStr("AGENTGATE_TSNET_HOSTNAME", &c.Tailscale.Hostname)
	envStr("AGENTGATE_TSNET_AUTH_KEY", &c.Tailscale.AuthKey)
	envStr("AGENTGATE_TSNET_DIR", &c.Tailscale.StateDir)
}

// Save writes the config to a JSON file. Secrets held only in env-sourced
// fields (tagged json:"-") are never written back to disk.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a short SHA-256 fingerprint of the config, used by the CLI
// to detect concurrent edits before overwriting the file on disk.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Call after modifying config in-process to restore secrets that
// only ever live in the environment.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}

// HashSecret returns a hex SHA-256 digest of a secret, used to store a
// comparable fingerprint of the webhook secret without keeping the
// plaintext in the persisted config file.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(secret)))
	return fmt.Sprintf("%x", h[:])
}

// VerifyWebhookSecret reports whether a presented secret matches the
// configured one, in constant time.
func (c *Config) VerifyWebhookSecret(presented string) bool {
	c.mu.RLock()
	hash := c.Gateway.WebhookSecretHash
	c.mu.RUnlock()
	if hash == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(HashSecret(presented)), []byte(hash)) == 1
}
