package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/askbox/store"
)

const customInstructionColumns = `id, user_id, about_user, preference, is_active, created_ts, updated_ts`

func scanCustomInstruction(row interface{ Scan(...any) error }) (*store.CustomInstruction, error) {
	ci := &store.CustomInstruction{}
	var about, preference sql.NullString
	if err := row.Scan(&ci.ID, &ci.UserID, &about, &preference, &ci.IsActive, &ci.CreatedTs, &ci.UpdatedTs); err != nil {
		return nil, err
	}
	if about.Valid {
		ci.AboutUser = &about.String
	}
	if preference.Valid {
		ci.Preference = &preference.String
	}
	return ci, nil
}

// CreateCustomInstruction inserts an instruction. An active instruction
// deactivates the user's other instructions in the same transaction.
func (d *DB) CreateCustomInstruction(ctx context.Context, create *store.CustomInstruction) (*store.CustomInstruction, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if create.IsActive {
			if _, err := tx.ExecContext(ctx,
				`UPDATE custom_instruction SET is_active = 0, updated_ts = ? WHERE user_id = ? AND is_active = 1`,
				create.UpdatedTs, create.UserID,
			); err != nil {
				return errors.Wrap(err, "failed to deactivate custom instructions")
			}
		}
		stmt := `INSERT INTO custom_instruction (user_id, about_user, preference, is_active, created_ts, updated_ts)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt,
			create.UserID, nullString(create.AboutUser), nullString(create.Preference), create.IsActive, create.CreatedTs, create.UpdatedTs,
		).Scan(&create.ID); err != nil {
			return errors.Wrap(err, "failed to create custom instruction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListCustomInstructions(ctx context.Context, find *store.FindCustomInstruction) ([]*store.CustomInstruction, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = ?"), append(args, *find.IsActive)
	}

	query := `SELECT ` + customInstructionColumns + `
		FROM custom_instruction
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list custom instructions")
	}
	defer rows.Close()

	list := make([]*store.CustomInstruction, 0)
	for rows.Next() {
		ci, err := scanCustomInstruction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan custom instruction")
		}
		list = append(list, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate custom instructions")
	}
	return list, nil
}

// UpdateCustomInstruction updates an instruction. Setting IsActive to true
// deactivates the user's other instructions in the same transaction.
func (d *DB) UpdateCustomInstruction(ctx context.Context, update *store.UpdateCustomInstruction) (*store.CustomInstruction, error) {
	set, args := []string{}, []any{}

	if update.AboutUser != nil {
		set, args = append(set, "about_user = ?"), append(args, *update.AboutUser)
	}
	if update.Preference != nil {
		set, args = append(set, "preference = ?"), append(args, *update.Preference)
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = ?"), append(args, *update.IsActive)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	var result *store.CustomInstruction
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if update.IsActive != nil && *update.IsActive {
			if _, err := tx.ExecContext(ctx,
				`UPDATE custom_instruction SET is_active = 0
				WHERE is_active = 1 AND id <> ? AND user_id = (SELECT user_id FROM custom_instruction WHERE id = ?)`,
				update.ID, update.ID,
			); err != nil {
				return errors.Wrap(err, "failed to deactivate custom instructions")
			}
		}

		stmt := `UPDATE custom_instruction SET ` + strings.Join(set, ", ") + ` WHERE id = ? RETURNING ` + customInstructionColumns
		ci, err := scanCustomInstruction(tx.QueryRowContext(ctx, stmt, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errors.Wrap(store.ErrNotFound, "custom instruction")
			}
			return errors.Wrap(err, "failed to update custom instruction")
		}
		result = ci
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
