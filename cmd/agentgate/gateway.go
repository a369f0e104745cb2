package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agentgate/internal/agent"
	"github.com/nextlevelbuilder/agentgate/internal/channels"
	"github.com/nextlevelbuilder/agentgate/internal/chatapi"
	"github.com/nextlevelbuilder/agentgate/internal/chatworker"
	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/cron"
	"github.com/nextlevelbuilder/agentgate/internal/docstore"
	"github.com/nextlevelbuilder/agentgate/internal/gateway"
	"github.com/nextlevelbuilder/agentgate/internal/idempotency"
	"github.com/nextlevelbuilder/agentgate/internal/observability"
	"github.com/nextlevelbuilder/agentgate/internal/pairing"
	"github.com/nextlevelbuilder/agentgate/internal/ratelimit"
	"github.com/nextlevelbuilder/agentgate/internal/sidecar"
	"github.com/nextlevelbuilder/agentgate/internal/store/audit"
)

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the gateway server (default when no subcommand is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway()
		},
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func buildChannelMap(cfg *config.Config) map[string]channels.Channel {
	m := map[string]channels.Channel{
		"whatsapp": &channels.WhatsApp{
			AppSecret:   cfg.Channels.WhatsApp.AppSecret,
			VerifyToken: cfg.Channels.WhatsApp.VerifyToken,
			AccessToken: cfg.Channels.WhatsApp.AccessToken,
			PhoneID:     cfg.Channels.WhatsApp.PhoneID,
		},
		"linq": &channels.Linq{
			SigningSecret: cfg.Channels.Linq.SigningSecret,
			APIBaseURL:    cfg.Channels.Linq.APIBaseURL,
			APIToken:      cfg.Channels.Linq.APIToken,
		},
		"wati": &channels.Wati{
			WebhookToken: cfg.Channels.Wati.WebhookToken,
			APIBaseURL:   cfg.Channels.Wati.APIBaseURL,
			APIToken:     cfg.Channels.Wati.APIToken,
		},
		"nextcloud_talk": &channels.NextcloudTalk{
			WebhookSecret: cfg.Channels.NextcloudTalk.WebhookSecret,
			BaseURL:       cfg.Channels.NextcloudTalk.BaseURL,
			BotToken:      cfg.Channels.NextcloudTalk.BotToken,
		},
		"discord":  &channels.DiscordStub{BotToken: cfg.Channels.Discord.BotToken},
		"telegram": &channels.TelegramStub{BotToken: cfg.Channels.Telegram.BotToken},
		"feishu": &channels.FeishuStub{
			AppID:     cfg.Channels.Feishu.AppID,
			AppSecret: cfg.Channels.Feishu.AppSecret,
		},
		"zalo": &channels.ZaloStub{Token: cfg.Channels.Zalo.Token},
	}
	return m
}

func buildTunnel(cfg *config.TailscaleConfig) gateway.TunnelProvider {
	if cfg.Provider != "tsnet" {
		return gateway.NoneTunnel{}
	}
	return gateway.NewTsnetTunnel(cfg.Hostname, cfg.StateDir, cfg.AuthKey, cfg.Ephemeral)
}

func buildObserver(cfg *config.TelemetryConfig) observability.Observer {
	if cfg.Enabled {
		return observability.NewPrometheus()
	}
	return observability.Noop{}
}

// runGateway wires config, admission (pairing/rate-limit/idempotency), the
// in-process agent, channel map, docstore client, chat worker, sidecar
// child processes, and the HTTP server into one running gateway, blocking
// until SIGINT/SIGTERM and then tearing everything down in reverse order.
func runGateway() error {
	setupLogging()

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	workspaceDir := config.ExpandHome(cfg.Gateway.WorkspaceDir)
	if workspaceDir == "" {
		workspaceDir = config.ExpandHome(config.DefaultConfigDir + "/workspace")
	}
	if _, err := sidecar.EnsureWorkspaceReady(workspaceDir); err != nil {
		slog.Warn("workspace skeleton seeding failed", "error", err)
	}

	auditStore, err := audit.Open(&cfg.Database)
	if err != nil {
		slog.Warn("audit log unavailable, continuing without it", "error", err)
		auditStore = nil
	}

	ag, err := agent.New(&cfg.Providers, "")
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	observer := buildObserver(&cfg.Telemetry)
	pairingGuard := pairing.New(cfg.Gateway.RequirePairing, cfg.Gateway.PairedTokens)
	maxKeys := ratelimit.NormalizeMaxKeys(cfg.Gateway.RateLimitMaxKeys, 10000)
	rateGateway := ratelimit.NewGateway(cfg.Gateway.RateLimitPairPerMin, cfg.Gateway.RateLimitWebhookPerMin, maxKeys)
	idemStore := idempotency.New(time.Duration(cfg.Gateway.IdempotencyTTLSecs)*time.Second, cfg.Gateway.IdempotencyMaxKeys)

	state := &gateway.State{
		Config:                cfg,
		Pairing:               pairingGuard,
		RateLimiter:           rateGateway,
		Idempotency:           idemStore,
		Agent:                 ag,
		Observer:              observer,
		Channels:              buildChannelMap(cfg),
		TrustForwardedHeaders: cfg.Gateway.TrustForwardedHeaders,
		PersistTokens: func(tokens []string) error {
			cfg.Gateway.PairedTokens = tokens
			return config.Save(cfgPath, cfg)
		},
		Audit: auditStore,
	}

	docstoreClient := docstore.New(cfg.DocStore.BaseURL, cfg.DocStore.Token)
	chatState := &chatapi.State{
		Store:             docstoreClient,
		ChatCollection:    cfg.DocStore.ChatCollection,
		JournalCollection: "journal_entries",
		WorkspaceDir:      workspaceDir,
		Pairing:           pairingGuard,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := sidecar.NewSupervisor(func(source, line string) {
		slog.Debug("sidecar output", "source", source, "line", line)
	})
	if !cfg.Sidecar.Disabled {
		if err := sup.StartDocStore(ctx, &cfg.Sidecar); err != nil {
			slog.Warn("docstore sidecar failed to start", "error", err)
		}
		if err := sup.StartAgentDaemon(ctx, &cfg.Sidecar, workspaceDir, nil); err != nil {
			slog.Warn("agent daemon sidecar failed to start", "error", err)
		}
	}

	scheduler := cron.NewInProcess(nil)
	var worker *chatworker.Worker
	if !cfg.DocStore.Disabled {
		pollMs := cfg.DocStore.PollIntervalMs
		if pollMs <= 0 {
			pollMs = 1500
		}
		worker = chatworker.New(docstoreClient, cfg.DocStore.ChatCollection, pollMs, ag, scheduler, observer)
	}

	stop := make(chan struct{})
	if worker != nil {
		go worker.Run(ctx, stop)
	}
	go scheduler.Run(stop, time.Second)

	tunnel := buildTunnel(&cfg.Tailscale)
	mux := gateway.BuildMux(state, chatState)
	srv, err := gateway.Start(ctx, &cfg.Gateway, tunnel, mux)
	if err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("agentgate starting",
		"version", Version,
		"addr", srv.Addr().String(),
		"require_pairing", cfg.Gateway.RequirePairing,
		"channels", len(state.Channels),
	)

	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)

	close(stop)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("gateway shutdown error", "error", err)
	}
	sup.Shutdown()
	if auditStore != nil {
		if err := auditStore.Close(); err != nil {
			slog.Warn("audit store close error", "error", err)
		}
	}
	return nil
}
