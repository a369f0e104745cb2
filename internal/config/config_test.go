package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultHasSaneGatewayValues(t *testing.T) {
	cfg := Default()
	if cfg.Gateway.Port == 0 {
		t.Fatal("expected a default port")
	}
	if !cfg.Gateway.RequirePairing {
		t.Fatal("expected pairing to be required by default")
	}
	if cfg.Gateway.RateLimitWebhookPerMin == 0 {
		t.Fatal("expected a default webhook rate limit")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.Port != Default().Gateway.Port {
		t.Fatal("expected default port when config file is absent")
	}
}

func TestLoadParsesJSON5AndAppliesEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	if err := os.WriteFile(path, []byte(`{
		// trailing commas and comments are fine in json5
		gateway: { host: "0.0.0.0", port: 9000 },
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGENTGATE_PORT", "9100")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.Host != "0.0.0.0" {
		t.Fatalf("expected host from file, got %q", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 9100 {
		t.Fatalf("expected env override to win, got %d", cfg.Gateway.Port)
	}
}

func TestApplyEnvOverridesAutoEnablesChannels(t *testing.T) {
	cfg := Default()
	t.Setenv("AGENTGATE_WHATSAPP_ACCESS_TOKEN", "tok")
	cfg.ApplyEnvOverrides()
	if !cfg.Channels.WhatsApp.Enabled {
		t.Fatal("expected whatsapp to auto-enable once a token is present")
	}
}

func TestSaveDoesNotPersistSecrets(t *testing.T) {
	cfg := Default()
	cfg.Gateway.WebhookSecret = "topsecret"
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "topsecret"; strings.Contains(string(data), want) {
		t.Fatalf("expected secret to be omitted from persisted config, found %q", want)
	}
}

func TestVerifyWebhookSecret(t *testing.T) {
	cfg := Default()
	cfg.Gateway.WebhookSecret = "hunter2"
	cfg.Gateway.WebhookSecretHash = HashSecret("hunter2")
	if !cfg.VerifyWebhookSecret("hunter2") {
		t.Fatal("expected matching secret to verify")
	}
	if cfg.VerifyWebhookSecret("wrong") {
		t.Fatal("expected mismatched secret to fail")
	}
}
