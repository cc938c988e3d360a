package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/askbox/store"
)

// CreateMessage locks the parent conversation row so concurrent writers
// observe each other's timestamps, then inserts with a strictly increasing
// created_ts.
func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var id int32
		if err := tx.QueryRowContext(ctx, `SELECT id FROM conversation WHERE id = $1 FOR UPDATE`, create.ConversationID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("conversation %d: %w", create.ConversationID, store.ErrNotFound)
			}
			return fmt.Errorf("failed to lock conversation: %w", err)
		}

		var last int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(created_ts), 0) FROM message WHERE conversation_id = $1`, create.ConversationID,
		).Scan(&last); err != nil {
			return fmt.Errorf("failed to read latest message timestamp: %w", err)
		}
		if create.CreatedTs <= last {
			create.CreatedTs = last + 1
		}

		fields := []string{"conversation_id", "role", "content", "created_ts"}
		args := []any{create.ConversationID, create.Role, create.Content, create.CreatedTs}
		stmt := `INSERT INTO message (` + strings.Join(fields, ", ") + `)
			VALUES (` + placeholders(len(args)) + `)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}

	query := `SELECT id, conversation_id, role, content, created_ts
		FROM message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return list, nil
}
