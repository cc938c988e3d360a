package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/askbox/store"
)

const conversationColumns = `id, uid, creator_id, model, title, context, is_temporary, last_activity_ts, created_ts, updated_ts`

func scanConversation(row interface{ Scan(...any) error }) (*store.Conversation, error) {
	c := &store.Conversation{}
	err := row.Scan(&c.ID, &c.UID, &c.CreatorID, &c.Model, &c.Title, &c.Context, &c.IsTemporary, &c.LastActivityTs, &c.CreatedTs, &c.UpdatedTs)
	return c, err
}

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	if create.Context == "" {
		create.Context = store.DefaultConversationContext
	}
	stmt := `INSERT INTO conversation (uid, creator_id, model, title, context, is_temporary, last_activity_ts, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, create.Model, create.Title, create.Context, create.IsTemporary,
		create.LastActivityTs, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.IsTemporary != nil {
		where, args = append(where, "is_temporary = ?"), append(args, *find.IsTemporary)
	}

	query := `SELECT ` + conversationColumns + `
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY last_activity_ts DESC, id DESC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversations")
	}
	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Model != nil {
		set, args = append(set, "model = ?"), append(args, *update.Model)
	}
	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.Context != nil {
		set, args = append(set, "context = ?"), append(args, *update.Context)
	}
	if update.LastActivityTs != nil {
		// last activity never moves backwards
		set, args = append(set, "last_activity_ts = MAX(last_activity_ts, ?)"), append(args, *update.LastActivityTs)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ? RETURNING ` + conversationColumns
	c, err := scanConversation(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(store.ErrNotFound, "conversation")
		}
		return nil, errors.Wrap(err, "failed to update conversation")
	}
	return c, nil
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM message WHERE conversation_id = ?`, delete.ID); err != nil {
			return errors.Wrap(err, "failed to delete conversation messages")
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM conversation WHERE id = ?`, delete.ID)
		if err != nil {
			return errors.Wrap(err, "failed to delete conversation")
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return errors.Wrap(store.ErrNotFound, "conversation")
		}
		return nil
	})
}
