package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/store/audit"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("agentgate doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Audit log:")
	fmt.Printf("    %-12s %s\n", "Mode:", cfg.Database.Mode)
	store, err := audit.Open(&cfg.Database)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
	} else {
		fmt.Printf("    %-12s OK\n", "Status:")
		store.Close()
	}

	fmt.Println()
	fmt.Println("  Providers:")
	checkProvider("Anthropic", cfg.Providers.Anthropic.APIKey)
	checkProvider("OpenAI", cfg.Providers.OpenAI.APIKey)
	checkProvider("DashScope", cfg.Providers.DashScope.APIKey)

	fmt.Println()
	fmt.Println("  Channels:")
	checkChannel("WhatsApp", cfg.Channels.WhatsApp.Enabled, cfg.Channels.WhatsApp.AccessToken != "")
	checkChannel("Linq", cfg.Channels.Linq.Enabled, cfg.Channels.Linq.APIToken != "")
	checkChannel("Wati", cfg.Channels.Wati.Enabled, cfg.Channels.Wati.APIToken != "")
	checkChannel("Nextcloud Talk", cfg.Channels.NextcloudTalk.Enabled, cfg.Channels.NextcloudTalk.BotToken != "")
	checkChannel("Discord", cfg.Channels.Discord.Enabled, cfg.Channels.Discord.BotToken != "")
	checkChannel("Telegram", cfg.Channels.Telegram.Enabled, cfg.Channels.Telegram.BotToken != "")
	checkChannel("Feishu", cfg.Channels.Feishu.Enabled, cfg.Channels.Feishu.AppSecret != "")
	checkChannel("Zalo", cfg.Channels.Zalo.Enabled, cfg.Channels.Zalo.Token != "")

	fmt.Println()
	fmt.Println("  Sidecar binaries:")
	checkBinaryPath("docstore", cfg.Sidecar.DocStoreBinary)
	checkBinaryPath("agent", cfg.Sidecar.AgentBinary)
	checkBinary("git")

	fmt.Println()
	ws := config.ExpandHome(cfg.Gateway.WorkspaceDir)
	fmt.Printf("  Workspace: %s", ws)
	if _, err := os.Stat(ws); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkProvider(name, apiKey string) {
	if apiKey != "" {
		masked := apiKey
		if len(apiKey) > 8 {
			masked = apiKey[:4] + strings.Repeat("*", len(apiKey)-8) + apiKey[len(apiKey)-4:]
		}
		fmt.Printf("    %-12s %s\n", name+":", masked)
	} else {
		fmt.Printf("    %-12s (not configured)\n", name+":")
	}
}

func checkChannel(name string, enabled, hasCredentials bool) {
	status := "disabled"
	if enabled && hasCredentials {
		status = "enabled"
	} else if enabled {
		status = "enabled (missing credentials)"
	}
	fmt.Printf("    %-16s %s\n", name+":", status)
}

func checkBinary(name string) {
	if path, err := exec.LookPath(name); err == nil {
		fmt.Printf("    %-12s %s\n", name+":", path)
	} else {
		fmt.Printf("    %-12s (not found)\n", name+":")
	}
}

func checkBinaryPath(label, path string) {
	if path == "" {
		fmt.Printf("    %-12s (not configured)\n", label+":")
		return
	}
	if _, err := exec.LookPath(path); err == nil {
		fmt.Printf("    %-12s %s (OK)\n", label+":", path)
	} else {
		fmt.Printf("    %-12s %s (NOT FOUND)\n", label+":", path)
	}
}
