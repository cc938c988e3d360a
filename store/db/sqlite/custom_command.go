package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/askbox/store"
)

const customCommandColumns = `id, user_id, command, name, description, prompt, is_active, created_ts, updated_ts`

func scanCustomCommand(row interface{ Scan(...any) error }) (*store.CustomCommand, error) {
	cc := &store.CustomCommand{}
	err := row.Scan(&cc.ID, &cc.UserID, &cc.Command, &cc.Name, &cc.Description, &cc.Prompt, &cc.IsActive, &cc.CreatedTs, &cc.UpdatedTs)
	return cc, err
}

func (d *DB) CreateCustomCommand(ctx context.Context, create *store.CustomCommand) (*store.CustomCommand, error) {
	stmt := `INSERT INTO custom_command (user_id, command, name, description, prompt, is_active, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID, create.Command, create.Name, create.Description, create.Prompt, create.IsActive,
		create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create custom command")
	}
	return create, nil
}

func (d *DB) ListCustomCommands(ctx context.Context, find *store.FindCustomCommand) ([]*store.CustomCommand, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Command != nil {
		where, args = append(where, "command = ?"), append(args, *find.Command)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = ?"), append(args, *find.IsActive)
	}

	query := `SELECT ` + customCommandColumns + `
		FROM custom_command
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY command ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list custom commands")
	}
	defer rows.Close()

	list := make([]*store.CustomCommand, 0)
	for rows.Next() {
		cc, err := scanCustomCommand(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan custom command")
		}
		list = append(list, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate custom commands")
	}
	return list, nil
}

func (d *DB) DeleteCustomCommand(ctx context.Context, delete *store.DeleteCustomCommand) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM custom_command WHERE id = ?`, delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete custom command")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Wrap(store.ErrNotFound, "custom command")
	}
	return nil
}
