package sidecar

import (
	"os"
	"path/filepath"

	"github.com/nextlevelbuilder/agentgate/internal/bootstrap"
)

// WorkspaceSkeletonMissing reports whether any core workspace file or
// directory is absent, mirroring the desktop shell's partial-install check.
func WorkspaceSkeletonMissing(workspaceDir string) bool {
	for _, name := range []string{
		bootstrap.AgentsFile, bootstrap.BootstrapFile, bootstrap.HeartbeatFile,
		bootstrap.IdentityFile, bootstrap.MemoryFile, bootstrap.SoulFile,
		bootstrap.ToolsFile, bootstrap.UserFile,
	} {
		if _, err := os.Stat(filepath.Join(workspaceDir, name)); err != nil {
			return true
		}
	}
	for _, dir := range bootstrap.CoreWorkspaceDirs {
		if info, err := os.Stat(filepath.Join(workspaceDir, dir)); err != nil || !info.IsDir() {
			return true
		}
	}
	return false
}

// EnsureWorkspaceReady seeds any missing skeleton files/dirs into
// workspaceDir. Safe to call on every startup: EnsureWorkspaceFiles never
// overwrites a file that already exists, so a fully-onboarded workspace is
// left untouched and only a partially-onboarded one is repaired.
func EnsureWorkspaceReady(workspaceDir string) ([]string, error) {
	if !WorkspaceSkeletonMissing(workspaceDir) {
		return nil, nil
	}
	return bootstrap.EnsureWorkspaceFiles(workspaceDir)
}
