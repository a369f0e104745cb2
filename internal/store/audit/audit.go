// Package audit is a best-effort log of pairing attempts and scheduled
// worker outcomes. It never blocks or fails the operation it's recording:
// every write method swallows its own error after logging it, since losing
// an audit row is always preferable to losing a user-facing request.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/agentgate/internal/config"
)

// Store records pairing attempts and cron/worker tick outcomes for
// operators to review with `SELECT` against either backing database.
type Store struct {
	db   *sql.DB
	mode string
}

// placeholders returns this backend's positional-parameter markers:
// pgx requires $1, $2, ...; modernc's SQLite driver takes plain "?".
func (s *Store) placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		if s.mode == "postgres" {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// Open connects to the configured audit backend. In "managed" mode this is
// Postgres via pgx, with schema managed out of band by the migrate
// subcommand (golang-migrate against ./migrations). In embedded mode
// (the default) this is a local SQLite file opened with the pure-Go
// modernc.org/sqlite driver, with the two-table schema created
// in-process since a single-file embedded database has no separate
// deployment step to run migrations in.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg.Mode == "managed" && cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("audit: open postgres: %w", err)
		}
		if err := db.PingContext(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: ping postgres: %w", err)
		}
		return &Store{db: db, mode: "postgres"}, nil
	}

	path := cfg.SQLitePath
	if path == "" {
		path = "agentgate_audit.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	if err := ensureSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ensure schema: %w", err)
	}
	return &Store{db: db, mode: "sqlite"}, nil
}

func ensureSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pairing_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_key TEXT NOT NULL,
			success INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_pairing_attempts_client_key ON pairing_attempts (client_key);

		CREATE TABLE IF NOT EXISTS worker_ticks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			worker_name TEXT NOT NULL,
			success INTEGER NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_worker_ticks_worker_name ON worker_ticks (worker_name);
	`)
	return err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordPairingAttempt logs one pairing attempt, successful or not. Errors
// are logged and swallowed.
func (s *Store) RecordPairingAttempt(ctx context.Context, clientKey string, success bool) {
	p := s.placeholders(2)
	query := fmt.Sprintf(`INSERT INTO pairing_attempts (client_key, success) VALUES (%s, %s)`, p[0], p[1])
	if _, err := s.db.ExecContext(ctx, query, clientKey, success); err != nil {
		slog.Warn("audit: failed to record pairing attempt", "error", err)
	}
}

// RecordWorkerTick logs one scheduled worker run outcome. Errors are logged
// and swallowed.
func (s *Store) RecordWorkerTick(ctx context.Context, workerName string, success bool, detail string) {
	p := s.placeholders(3)
	query := fmt.Sprintf(`INSERT INTO worker_ticks (worker_name, success, detail) VALUES (%s, %s, %s)`, p[0], p[1], p[2])
	if _, err := s.db.ExecContext(ctx, query, workerName, success, detail); err != nil {
		slog.Warn("audit: failed to record worker tick", "error", err)
	}
}

// RecentPairingFailures returns the count of all recorded failed pairing
// attempts for a client key; no time window is applied. Used by
// doctor-style diagnostics rather than the hot request path.
func (s *Store) RecentPairingFailures(ctx context.Context, clientKey string) (int, error) {
	p := s.placeholders(2)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM pairing_attempts WHERE client_key = %s AND success = %s`, p[0], p[1])
	var count int
	err := s.db.QueryRowContext(ctx, query, clientKey, false).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("audit: count pairing failures: %w", err)
	}
	return count, nil
}

// Mode reports which backend is active ("postgres" or "sqlite").
func (s *Store) Mode() string {
	return s.mode
}
