package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is a single versioned schema change. Versions are ordered
// timestamps; applied versions are recorded in tally_migrations and
// never re-run.
type migration struct {
	version string
	name    string
	up      string
}

var migrations = []migration{
	{
		version: "20260301000001",
		name:    "create_tally_sequences",
		up: `
CREATE TABLE IF NOT EXISTS tally_sequences (
    kind    TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		version: "20260301000002",
		name:    "create_tally_providers",
		up: `
CREATE TABLE IF NOT EXISTS tally_providers (
    id                 INTEGER PRIMARY KEY,
    owner              TEXT NOT NULL DEFAULT '',
    key_hash           TEXT NOT NULL,
    fee_per_cycle      INTEGER NOT NULL DEFAULT 0,
    cycle              TEXT NOT NULL DEFAULT 'month',
    balance            INTEGER NOT NULL DEFAULT 0,
    active             INTEGER NOT NULL DEFAULT 1,
    links              TEXT NOT NULL DEFAULT '[]',
    next_withdrawal_at INTEGER NOT NULL DEFAULT 0,
    created_at         INTEGER NOT NULL DEFAULT 0,
    updated_at         INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_providers_key_hash ON tally_providers (key_hash);
CREATE INDEX IF NOT EXISTS idx_tally_providers_owner ON tally_providers (owner);
`,
	},
	{
		version: "20260301000003",
		name:    "create_tally_subscribers",
		up: `
CREATE TABLE IF NOT EXISTS tally_subscribers (
    id           INTEGER PRIMARY KEY,
    owner        TEXT NOT NULL DEFAULT '',
    balance      INTEGER NOT NULL DEFAULT 0,
    provider_ids TEXT NOT NULL DEFAULT '[]',
    created_at   INTEGER NOT NULL DEFAULT 0,
    updated_at   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tally_subscribers_owner ON tally_subscribers (owner);
`,
	},
}

// runMigrations applies all unapplied migrations in order, each in its
// own transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tally_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return fmt.Errorf("tally/sqlite: create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM tally_migrations`)
	if err != nil {
		return fmt.Errorf("tally/sqlite: read applied migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("tally/sqlite: scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("tally/sqlite: read applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tally/sqlite: migration %s: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("tally/sqlite: migration %s (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tally_migrations (version, name) VALUES (?, ?)`,
		m.version, m.name); err != nil {
		return fmt.Errorf("tally/sqlite: record migration %s: %w", m.version, err)
	}
	return tx.Commit()
}
