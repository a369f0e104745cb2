package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/sidecar"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "First-run setup: scaffold config.json and the agent workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	}
}

// runOnboard builds a default config, overlays whatever provider/channel
// secrets are already in the environment, seeds the workspace skeleton,
// and writes config.json if one doesn't already exist — non-interactive,
// so it is safe to run from a container entrypoint.
func runOnboard() error {
	cfgPath := resolveConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s — nothing to do.\n", cfgPath)
		return nil
	}

	cfg := config.Default()
	cfg.ApplyEnvOverrides()

	if !hasAnyProviderKey(cfg) {
		fmt.Println("No provider API key found in the environment.")
		fmt.Println("Set one of AGENTGATE_ANTHROPIC_API_KEY, AGENTGATE_OPENAI_API_KEY,")
		fmt.Println("AGENTGATE_DASHSCOPE_API_KEY and re-run `agentgate onboard`.")
		return fmt.Errorf("no provider configured")
	}

	workspaceDir := config.ExpandHome(cfg.Gateway.WorkspaceDir)
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	seeded, err := sidecar.EnsureWorkspaceReady(workspaceDir)
	if err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}
	if len(seeded) > 0 {
		fmt.Printf("Seeded workspace templates: %v\n", seeded)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Config written to %s\n", cfgPath)
	fmt.Printf("Provider:  %s\n", cfg.Providers.Default)
	fmt.Printf("Workspace: %s\n", workspaceDir)
	fmt.Println()
	fmt.Println("Run `agentgate gateway` to start, or `agentgate doctor` to double-check setup.")
	return nil
}

func hasAnyProviderKey(cfg *config.Config) bool {
	return cfg.Providers.Anthropic.APIKey != "" ||
		cfg.Providers.OpenAI.APIKey != "" ||
		cfg.Providers.DashScope.APIKey != ""
}
