package repository

import (
	"context"
	"fmt"
)

// The DDL is the common subset of Postgres and SQLite.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bulletin_run (
		id            TEXT PRIMARY KEY,
		source_path   TEXT NOT NULL,
		bulletin_date TEXT NOT NULL,
		status        TEXT NOT NULL,
		pages         INTEGER NOT NULL DEFAULT 0,
		products      INTEGER NOT NULL DEFAULT 0,
		discarded     INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS bulletin (
		run_id        TEXT PRIMARY KEY REFERENCES bulletin_run(id),
		bulletin_date TEXT NOT NULL,
		source        TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bulletin_date_idx ON bulletin (bulletin_date, created_at)`,
	`CREATE TABLE IF NOT EXISTS product_price (
		run_id           TEXT NOT NULL REFERENCES bulletin(run_id) ON DELETE CASCADE,
		position         INTEGER NOT NULL,
		product_id       TEXT NOT NULL,
		name             TEXT NOT NULL,
		unit             TEXT NOT NULL,
		category         TEXT NOT NULL,
		price_min        DOUBLE PRECISION NOT NULL,
		price_max        DOUBLE PRECISION NOT NULL,
		mode             DOUBLE PRECISION NOT NULL,
		average          DOUBLE PRECISION NOT NULL,
		price_per_kilo   DOUBLE PRECISION,
		volatility_index DOUBLE PRECISION NOT NULL,
		weight_kg        INTEGER,
		PRIMARY KEY (run_id, position)
	)`,
}

// Migrate creates the tables if they do not exist. It is safe to run on every start.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Debug("database migrated", "statements", len(migrations))
	return nil
}
