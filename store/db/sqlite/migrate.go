package sqlite

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	nickname TEXT NOT NULL DEFAULT '',
	selected_model TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
	model TEXT NOT NULL,
	title TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '[]',
	is_temporary INTEGER NOT NULL DEFAULT 0,
	last_activity_ts BIGINT NOT NULL,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_creator_activity
	ON conversation (creator_id, last_activity_ts DESC);

CREATE TABLE IF NOT EXISTS message (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_message_conversation_created
	ON message (conversation_id, created_ts, id);

CREATE TABLE IF NOT EXISTS custom_instruction (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
	about_user TEXT,
	preference TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_custom_instruction_one_active
	ON custom_instruction (user_id) WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS custom_command (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
	command TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	prompt TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	UNIQUE (user_id, command)
);
`

// Migrate creates the schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	slog.Info("database schema is up to date", "driver", "sqlite")
	return nil
}
