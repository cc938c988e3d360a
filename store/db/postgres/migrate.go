package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS "user" (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		nickname TEXT NOT NULL DEFAULT '',
		selected_model TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		creator_id INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		title TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '[]',
		is_temporary BOOLEAN NOT NULL DEFAULT FALSE,
		last_activity_ts BIGINT NOT NULL,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_creator_activity
		ON conversation (creator_id, last_activity_ts DESC)`,
	`CREATE TABLE IF NOT EXISTS message (
		id BIGSERIAL PRIMARY KEY,
		conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_conversation_created
		ON message (conversation_id, created_ts, id)`,
	`CREATE TABLE IF NOT EXISTS custom_instruction (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		about_user TEXT,
		preference TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_custom_instruction_one_active
		ON custom_instruction (user_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS custom_command (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		command TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		UNIQUE (user_id, command)
	)`,
}

// Migrate creates the schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	slog.Info("database schema is up to date", "driver", "postgres")
	return nil
}
