package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/askbox/store"
)

// CreateMessage inserts a message, bumping CreatedTs past the latest
// message of the conversation when needed so timestamps stay strictly
// increasing.
func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var last int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(created_ts), 0) FROM message WHERE conversation_id = ?`, create.ConversationID,
		).Scan(&last); err != nil {
			return errors.Wrap(err, "failed to read latest message timestamp")
		}
		if create.CreatedTs <= last {
			create.CreatedTs = last + 1
		}

		stmt := `INSERT INTO message (conversation_id, role, content, created_ts)
			VALUES (?, ?, ?, ?)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt,
			create.ConversationID, create.Role, create.Content, create.CreatedTs,
		).Scan(&create.ID); err != nil {
			return errors.Wrap(err, "failed to create message")
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
		where, args = append(where, "conversation_id = ?"), append(args, *find.ConversationID)
	}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}

	query := `SELECT id, conversation_id, role, content, created_ts
		FROM message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate messages")
	}
	return list, nil
}
