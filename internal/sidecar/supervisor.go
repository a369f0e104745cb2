// Package sidecar manages the child processes the gateway depends on — the
// DocStore record service and the long-running agent daemon — plus the
// first-run workspace bootstrap and device-pairing helpers that only make
// sense when the gateway owns its own process tree.
package sidecar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/nextlevelbuilder/agentgate/internal/config"
)

// Supervisor spawns and tears down the DocStore and agent daemon child
// processes, in the order the gateway needs them (DocStore first, since the
// agent and gateway both depend on it) and the reverse order on shutdown.
type Supervisor struct {
	mu        sync.Mutex
	docstore  *exec.Cmd
	agent     *exec.Cmd
	onLogLine func(source, line string)
}

// NewSupervisor builds an idle supervisor. onLogLine, if non-nil, receives
// every stdout/stderr line from either child — used by the pairing-code
// scraper to watch the agent daemon's boot log without a second reader.
func NewSupervisor(onLogLine func(source, line string)) *Supervisor {
	return &Supervisor{onLogLine: onLogLine}
}

// StartDocStore launches the DocStore binary against the configured data
// and migrations directories. A no-op if cfg.Sidecar.Disabled or the binary
// path is empty (tests and single-binary deployments run without it).
func (s *Supervisor) StartDocStore(ctx context.Context, cfg *config.SidecarConfig) error {
	if cfg.Disabled || cfg.DocStoreBinary == "" {
		slog.Debug("sidecar: docstore sidecar disabled or unconfigured")
		return nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("sidecar: create data dir: %w", err)
	}

	args := []string{"serve", "--dir", cfg.DataDir}
	if cfg.MigrationsDir != "" {
		args = append(args, "--migrationsDir", cfg.MigrationsDir)
	}
	cmd := exec.CommandContext(ctx, cfg.DocStoreBinary, args...)
	cmd.Dir = cfg.DataDir

	s.mu.Lock()
	s.docstore = cmd
	s.mu.Unlock()
	return s.start(cmd, "docstore")
}

// StartAgentDaemon launches the long-running agent process. Like
// StartDocStore, a no-op when unconfigured.
func (s *Supervisor) StartAgentDaemon(ctx context.Context, cfg *config.SidecarConfig, workspaceDir string, extraEnv []string) error {
	if cfg.Disabled || cfg.AgentBinary == "" {
		slog.Debug("sidecar: agent daemon disabled or unconfigured")
		return nil
	}

	cmd := exec.CommandContext(ctx, cfg.AgentBinary, "--workspace", workspaceDir)
	cmd.Env = append(os.Environ(), extraEnv...)

	s.mu.Lock()
	s.agent = cmd
	s.mu.Unlock()
	return s.start(cmd, "agent")
}

func (s *Supervisor) start(cmd *exec.Cmd, source string) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("sidecar: stdout pipe for %s: %w", source, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("sidecar: stderr pipe for %s: %w", source, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("sidecar: start %s: %w", source, err)
	}

	go s.streamLines(source, stdout)
	go s.streamLines(source, stderr)
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Warn("sidecar: child process exited", "source", source, "error", err)
		} else {
			slog.Info("sidecar: child process exited cleanly", "source", source)
		}
	}()
	return nil
}

func (s *Supervisor) streamLines(source string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		slog.Debug("sidecar: child output", "source", source, "line", line)
		if s.onLogLine != nil {
			s.onLogLine(source, line)
		}
	}
}

// Shutdown stops the agent daemon first, then DocStore — the reverse of
// spawn order, so the agent never observes a DocStore that's already gone.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	agentCmd, docstoreCmd := s.agent, s.docstore
	s.mu.Unlock()

	killQuietly(agentCmd, "agent")
	killQuietly(docstoreCmd, "docstore")
}

func killQuietly(cmd *exec.Cmd, source string) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		slog.Debug("sidecar: kill failed, process likely already exited", "source", source, "error", err)
	}
}

// WorkspacePBDataDir is the conventional location for the DocStore data
// directory inside a gateway workspace, used when config.Sidecar.DataDir is
// left unset.
func WorkspacePBDataDir(workspaceDir string) string {
	return filepath.Join(workspaceDir, "pb_data")
}
