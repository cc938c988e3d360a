package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/askbox/store"
)

const customCommandColumns = `id, user_id, command, name, description, prompt, is_active, created_ts, updated_ts`

func scanCustomCommand(row interface{ Scan(...any) error }) (*store.CustomCommand, error) {
	cc := &store.CustomCommand{}
	err := row.Scan(&cc.ID, &cc.UserID, &cc.Command, &cc.Name, &cc.Description, &cc.Prompt, &cc.IsActive, &cc.CreatedTs, &cc.UpdatedTs)
	return cc, err
}

func (d *DB) CreateCustomCommand(ctx context.Context, create *store.CustomCommand) (*store.CustomCommand, error) {
	fields := []string{"user_id", "command", "name", "description", "prompt", "is_active", "created_ts", "updated_ts"}
	args := []any{create.UserID, create.Command, create.Name, create.Description, create.Prompt, create.IsActive, create.CreatedTs, create.UpdatedTs}
	stmt := `INSERT INTO custom_command (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create custom command: %w", err)
	}
	return create, nil
}

func (d *DB) ListCustomCommands(ctx context.Context, find *store.FindCustomCommand) ([]*store.CustomCommand, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.Command != nil {
		where, args = append(where, "command = "+placeholder(len(args)+1)), append(args, *find.Command)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}

	query := `SELECT ` + customCommandColumns + `
		FROM custom_command
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY command ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom commands: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CustomCommand, 0)
	for rows.Next() {
		cc, err := scanCustomCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custom command: %w", err)
		}
		list = append(list, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom commands: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteCustomCommand(ctx context.Context, delete *store.DeleteCustomCommand) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM custom_command WHERE id = $1`, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete custom command: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("custom command %d: %w", delete.ID, store.ErrNotFound)
	}
	return nil
}
