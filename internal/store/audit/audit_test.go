package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/agentgate/internal/config"
)

func TestOpenDefaultsToEmbeddedSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(&config.DatabaseConfig{SQLitePath: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if store.Mode() != "sqlite" {
		t.Fatalf("expected sqlite mode, got %q", store.Mode())
	}
}

func TestRecordAndCountPairingAttempts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(&config.DatabaseConfig{SQLitePath: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.RecordPairingAttempt(ctx, "203.0.113.5", false)
	store.RecordPairingAttempt(ctx, "203.0.113.5", false)
	store.RecordPairingAttempt(ctx, "203.0.113.5", true)

	count, err := store.RecentPairingFailures(ctx, "203.0.113.5")
	if err != nil {
		t.Fatalf("RecentPairingFailures: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 failures, got %d", count)
	}
}

func TestRecordWorkerTick(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(&config.DatabaseConfig{SQLitePath: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	store.RecordWorkerTick(context.Background(), "heartbeat", true, "ok")
	// No read API for worker_ticks beyond direct SQL; absence of a panic or
	// swallowed-error log is the behavior under test here.
}
