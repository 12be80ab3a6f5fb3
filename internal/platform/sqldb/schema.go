package sqldb

import (
	"context"
	"fmt"
)

// Times are unix microseconds and dates are "2006-01-02" text so the same
// statements run on both dialects.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS screening_cache (
		id TEXT PRIMARY KEY,
		birth_date TEXT NOT NULL,
		series INTEGER NOT NULL,
		records TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_screening_cache_key ON screening_cache (birth_date, series, created_at)`,

	`CREATE TABLE IF NOT EXISTS confirmation_cache (
		id TEXT PRIMARY KEY,
		birth_date TEXT NOT NULL,
		series INTEGER NOT NULL,
		name TEXT NOT NULL,
		found TEXT NOT NULL,
		leftover TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_confirmation_cache_key ON confirmation_cache (birth_date, series, name, created_at)`,

	`CREATE TABLE IF NOT EXISTS search_log (
		id TEXT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		owner_nick TEXT NOT NULL DEFAULT '',
		owner_name TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		birth_date TEXT NOT NULL,
		name TEXT NOT NULL,
		series INTEGER NOT NULL,
		auto BOOLEAN NOT NULL,
		cache_tier INTEGER,
		result_count INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_log_owner ON search_log (owner_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_search_log_created ON search_log (created_at)`,

	`CREATE TABLE IF NOT EXISTS autosearch_tasks (
		id TEXT PRIMARY KEY,
		owner_id BIGINT NOT NULL UNIQUE,
		owner_nick TEXT NOT NULL DEFAULT '',
		owner_name TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL,
		name TEXT NOT NULL,
		series INTEGER NOT NULL,
		candidates TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		last_checked_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_autosearch_tasks_due ON autosearch_tasks (last_checked_at)`,

	`CREATE TABLE IF NOT EXISTS access_list (
		kind TEXT NOT NULL,
		owner_id BIGINT NOT NULL,
		expires_at BIGINT,
		comment TEXT NOT NULL DEFAULT '',
		added_by BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (kind, owner_id)
	)`,
}

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
