package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/agentgate/internal/config"
)

func TestExtractPairingCodeFromExplicitHeader(t *testing.T) {
	code, ok := ExtractPairingCode("2026-07-30T10:00:00Z INFO X-Pairing-Code: 482913")
	if !ok || code != "482913" {
		t.Fatalf("expected code 482913, got %q ok=%v", code, ok)
	}
}

func TestExtractPairingCodeFromBorderedBanner(t *testing.T) {
	code, ok := ExtractPairingCode("|        pairing code:  739201         |")
	if !ok || code != "739201" {
		t.Fatalf("expected code 739201, got %q ok=%v", code, ok)
	}
}

func TestExtractPairingCodeRejectsAmbiguousLines(t *testing.T) {
	if _, ok := ExtractPairingCode("pid 123456 started at 654321"); ok {
		t.Fatal("expected ambiguous two-run line to be rejected")
	}
	if _, ok := ExtractPairingCode("no digits here"); ok {
		t.Fatal("expected no-digit line to be rejected")
	}
}

func TestWatchForPairingCodeOnlyReportsOnce(t *testing.T) {
	var seen []string
	onLogLine := WatchForPairingCode(func(code string) {
		seen = append(seen, code)
	})

	onLogLine("agent", "booting up")
	onLogLine("agent", "X-Pairing-Code: 111111")
	onLogLine("agent", "X-Pairing-Code: 222222")

	if len(seen) != 1 || seen[0] != "111111" {
		t.Fatalf("expected exactly one reported code 111111, got %+v", seen)
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewTokenStore(dir)

	if got, err := store.Load(); err != nil || got != "" {
		t.Fatalf("expected empty token before save, got %q err=%v", got, err)
	}

	if err := store.Save("tok_abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "tok_abc123" {
		t.Fatalf("expected tok_abc123, got %q", got)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := store.Load(); err != nil || got != "" {
		t.Fatalf("expected empty token after delete, got %q err=%v", got, err)
	}
}

func TestWorkspaceSkeletonMissingAndEnsureWorkspaceReady(t *testing.T) {
	dir := t.TempDir()
	if !WorkspaceSkeletonMissing(dir) {
		t.Fatal("expected a brand-new empty dir to be missing its skeleton")
	}

	created, err := EnsureWorkspaceReady(dir)
	if err != nil {
		t.Fatalf("EnsureWorkspaceReady: %v", err)
	}
	if len(created) == 0 {
		t.Fatal("expected files to be created on first run")
	}
	if WorkspaceSkeletonMissing(dir) {
		t.Fatal("expected skeleton to be complete after EnsureWorkspaceReady")
	}

	// Second call is a no-op: nothing is missing, so nothing is touched.
	created, err = EnsureWorkspaceReady(dir)
	if err != nil {
		t.Fatalf("EnsureWorkspaceReady (second run): %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected no files created on a complete workspace, got %+v", created)
	}
}

func TestSupervisorStartsAreNoOpsWhenDisabled(t *testing.T) {
	sup := NewSupervisor(nil)
	cfg := &config.SidecarConfig{Disabled: true}

	if err := sup.StartDocStore(context.Background(), cfg); err != nil {
		t.Fatalf("expected disabled docstore start to be a no-op, got %v", err)
	}
	if err := sup.StartAgentDaemon(context.Background(), cfg, t.TempDir(), nil); err != nil {
		t.Fatalf("expected disabled agent start to be a no-op, got %v", err)
	}
	sup.Shutdown() // must not panic with nothing started
}

func TestResolveLocalLANIPReturnsAnAddress(t *testing.T) {
	ip, err := ResolveLocalLANIP()
	if err != nil {
		t.Skipf("no network route available in this environment: %v", err)
	}
	if ip == "" {
		t.Fatal("expected a non-empty IP")
	}
}

func TestWorkspacePBDataDir(t *testing.T) {
	want := filepath.Join("/tmp/ws", "pb_data")
	if got := WorkspacePBDataDir("/tmp/ws"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEnsureWorkspaceReadyCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "workspace")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected dir to not yet exist")
	}
	if _, err := EnsureWorkspaceReady(dir); err != nil {
		t.Fatalf("EnsureWorkspaceReady: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected workspace dir to be created")
	}
}
