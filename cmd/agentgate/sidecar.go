package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/sidecar"
)

// sidecarCmd runs just the DocStore and agent daemon child processes,
// without the HTTP gateway — useful for debugging a sidecar in isolation.
func sidecarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sidecar",
		Short: "Run the DocStore and agent daemon child processes standalone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSidecar()
		},
	}
}

func runSidecar() error {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Sidecar.Disabled {
		return fmt.Errorf("sidecar is disabled in config")
	}

	workspaceDir := config.ExpandHome(cfg.Gateway.WorkspaceDir)
	if _, err := sidecar.EnsureWorkspaceReady(workspaceDir); err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := sidecar.NewSupervisor(func(source, line string) {
		fmt.Printf("[%s] %s\n", source, line)
	})
	if err := sup.StartDocStore(ctx, &cfg.Sidecar); err != nil {
		return fmt.Errorf("start docstore: %w", err)
	}
	if err := sup.StartAgentDaemon(ctx, &cfg.Sidecar, workspaceDir, nil); err != nil {
		sup.Shutdown()
		return fmt.Errorf("start agent daemon: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sup.Shutdown()
	return nil
}
