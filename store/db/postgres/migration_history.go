package postgres

import (
	"context"
	"fmt"

	"github.com/hrygo/askbox/store"
)

const migrationHistoryTable = `CREATE TABLE IF NOT EXISTS migration_history (
	version TEXT NOT NULL PRIMARY KEY,
	created_ts BIGINT NOT NULL
)`

// FindMigrationHistoryList creates the history table on first use, so it
// can be read before the rest of the schema exists.
func (d *DB) FindMigrationHistoryList(ctx context.Context) ([]*store.MigrationHistory, error) {
	if _, err := d.db.ExecContext(ctx, migrationHistoryTable); err != nil {
		return nil, fmt.Errorf("failed to create migration history table: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT version, created_ts FROM migration_history ORDER BY created_ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list migration history: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MigrationHistory, 0)
	for rows.Next() {
		var h store.MigrationHistory
		if err := rows.Scan(&h.Version, &h.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan migration history: %w", err)
		}
		list = append(list, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate migration history: %w", err)
	}
	return list, nil
}

func (d *DB) UpsertMigrationHistory(ctx context.Context, upsert *store.UpsertMigrationHistory) (*store.MigrationHistory, error) {
	stmt := `INSERT INTO migration_history (version, created_ts) VALUES ($1, $2)
		ON CONFLICT (version) DO UPDATE SET created_ts = EXCLUDED.created_ts
		RETURNING version, created_ts`
	var h store.MigrationHistory
	if err := d.db.QueryRowContext(ctx, stmt, upsert.Version, upsert.CreatedTs).Scan(&h.Version, &h.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert migration history: %w", err)
	}
	return &h, nil
}
