package repo

import (
	"context"
	"fmt"
	"time"
)

// migration — одна версия схемы. Тексты DDL разные для каждого диалекта.
type migration struct {
	id       int
	name     string
	postgres string
	sqlite   string
}

// migrations применяются строго по порядку, каждая ровно один раз.
// Факт применения фиксируется в таблице migrations(id, name, applied_at).
var migrations = []migration{
	{
		id:   1,
		name: "create_owners",
		postgres: `
			CREATE TABLE IF NOT EXISTS owners (
				id         BIGSERIAL PRIMARY KEY,
				username   TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		sqlite: `
			CREATE TABLE IF NOT EXISTS owners (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				username   TEXT NOT NULL UNIQUE,
				created_at TEXT NOT NULL
			)`,
	},
	{
		id:   2,
		name: "create_scheduled_posts",
		postgres: `
			CREATE TABLE IF NOT EXISTS scheduled_posts (
				id             BIGSERIAL PRIMARY KEY,
				user_id        BIGINT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
				content        TEXT NOT NULL,
				post_type      TEXT NOT NULL CHECK (post_type IN ('post', 'poll')),
				scheduled_time TIMESTAMPTZ NOT NULL,
				status         TEXT NOT NULL DEFAULT 'pending'
				               CHECK (status IN ('pending', 'posted', 'failed', 'cancelled')),
				metadata       JSONB NOT NULL DEFAULT '{}',
				created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				posted_at      TIMESTAMPTZ,
				error_message  TEXT
			)`,
		sqlite: `
			CREATE TABLE IF NOT EXISTS scheduled_posts (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id        INTEGER NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
				content        TEXT NOT NULL,
				post_type      TEXT NOT NULL CHECK (post_type IN ('post', 'poll')),
				scheduled_time TEXT NOT NULL,
				status         TEXT NOT NULL DEFAULT 'pending'
				               CHECK (status IN ('pending', 'posted', 'failed', 'cancelled')),
				metadata       TEXT NOT NULL DEFAULT '{}',
				created_at     TEXT NOT NULL,
				posted_at      TEXT,
				error_message  TEXT
			)`,
	},
	{
		id:       3,
		name:     "add_is_immediate_column",
		postgres: `ALTER TABLE scheduled_posts ADD COLUMN IF NOT EXISTS is_immediate BOOLEAN NOT NULL DEFAULT FALSE`,
		sqlite:   `ALTER TABLE scheduled_posts ADD COLUMN is_immediate INTEGER NOT NULL DEFAULT 0`,
	},
	{
		id:       4,
		name:     "add_due_index",
		postgres: `CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due ON scheduled_posts (status, scheduled_time)`,
		sqlite:   `CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due ON scheduled_posts (status, scheduled_time)`,
	},
}

// migrationTarget — то, что умеет применять миграции в своём диалекте.
type migrationTarget interface {
	ensureLedger(ctx context.Context) error
	appliedMigrations(ctx context.Context) (map[int]bool, error)
	applyMigration(ctx context.Context, m migration, appliedAt time.Time) error
}

// runMigrations применяет недостающие миграции и возвращает их имена.
// Повторный запуск на актуальной схеме ничего не делает.
func runMigrations(ctx context.Context, target migrationTarget) ([]string, error) {
	if err := target.ensureLedger(ctx); err != nil {
		return nil, storageErr("create migrations ledger", err)
	}

	applied, err := target.appliedMigrations(ctx)
	if err != nil {
		return nil, storageErr("read migrations ledger", err)
	}

	var names []string
	for _, m := range migrations {
		if applied[m.id] {
			continue
		}
		if err := target.applyMigration(ctx, m, time.Now().UTC()); err != nil {
			return names, storageErr(fmt.Sprintf("apply migration %d_%s", m.id, m.name), err)
		}
		names = append(names, m.name)
	}
	return names, nil
}
