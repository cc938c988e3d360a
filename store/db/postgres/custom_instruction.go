package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

// deactivateOthers locks the owning user row and switches every active
// instruction except keepID off. A zero keepID deactivates all of them.
func deactivateOthers(ctx context.Context, tx *sql.Tx, userID, keepID int32, updatedTs int64) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT id FROM "user" WHERE id = $1 FOR UPDATE`, userID,
	); err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE custom_instruction SET is_active = FALSE, updated_ts = $1 WHERE user_id = $2 AND is_active AND id <> $3`,
		updatedTs, userID, keepID,
	); err != nil {
		return fmt.Errorf("failed to deactivate custom instructions: %w", err)
	}
	return nil
}

func (d *DB) CreateCustomInstruction(ctx context.Context, create *store.CustomInstruction) (*store.CustomInstruction, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if create.IsActive {
			if err := deactivateOthers(ctx, tx, create.UserID, 0, create.UpdatedTs); err != nil {
				return err
			}
		}
		fields := []string{"user_id", "about_user", "preference", "is_active", "created_ts", "updated_ts"}
		args := []any{create.UserID, nullString(create.AboutUser), nullString(create.Preference), create.IsActive, create.CreatedTs, create.UpdatedTs}
		stmt := `INSERT INTO custom_instruction (` + strings.Join(fields, ", ") + `)
			VALUES (` + placeholders(len(args)) + `)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
			return fmt.Errorf("failed to create custom instruction: %w", err)
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}

	query := `SELECT ` + customInstructionColumns + `
		FROM custom_instruction
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom instructions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CustomInstruction, 0)
	for rows.Next() {
		ci, err := scanCustomInstruction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custom instruction: %w", err)
		}
		list = append(list, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom instructions: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateCustomInstruction(ctx context.Context, update *store.UpdateCustomInstruction) (*store.CustomInstruction, error) {
	set, args := []string{}, []any{}

	if update.AboutUser != nil {
		set, args = append(set, "about_user = "+placeholder(len(args)+1)), append(args, *update.AboutUser)
	}
	if update.Preference != nil {
		set, args = append(set, "preference = "+placeholder(len(args)+1)), append(args, *update.Preference)
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	args = append(args, update.ID)

	var result *store.CustomInstruction
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if update.IsActive != nil && *update.IsActive {
			var userID int32
			if err := tx.QueryRowContext(ctx, `SELECT user_id FROM custom_instruction WHERE id = $1`, update.ID).Scan(&userID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("custom instruction %d: %w", update.ID, store.ErrNotFound)
				}
				return fmt.Errorf("failed to read custom instruction: %w", err)
			}
			var ts int64
			if update.UpdatedTs != nil {
				ts = *update.UpdatedTs
			}
			if err := deactivateOthers(ctx, tx, userID, update.ID, ts); err != nil {
				return err
			}
		}

		stmt := `UPDATE custom_instruction SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING ` + customInstructionColumns
		ci, err := scanCustomInstruction(tx.QueryRowContext(ctx, stmt, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("custom instruction %d: %w", update.ID, store.ErrNotFound)
			}
			return fmt.Errorf("failed to update custom instruction: %w", err)
		}
		result = ci
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
