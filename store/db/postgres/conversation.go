package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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
	fields := []string{"uid", "creator_id", "model", "title", "context", "is_temporary", "last_activity_ts", "created_ts", "updated_ts"}
	args := []any{create.UID, create.CreatorID, create.Model, create.Title, create.Context, create.IsTemporary, create.LastActivityTs, create.CreatedTs, create.UpdatedTs}
	stmt := `INSERT INTO conversation (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}
	if find.IsTemporary != nil {
		where, args = append(where, "is_temporary = "+placeholder(len(args)+1)), append(args, *find.IsTemporary)
	}

	query := `SELECT ` + conversationColumns + `
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY last_activity_ts DESC, id DESC`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Model != nil {
		set, args = append(set, "model = "+placeholder(len(args)+1)), append(args, *update.Model)
	}
	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.Context != nil {
		set, args = append(set, "context = "+placeholder(len(args)+1)), append(args, *update.Context)
	}
	if update.LastActivityTs != nil {
		set, args = append(set, "last_activity_ts = GREATEST(last_activity_ts, "+placeholder(len(args)+1)+")"), append(args, *update.LastActivityTs)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING ` + conversationColumns
	c, err := scanConversation(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %d: %w", update.ID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return c, nil
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM message WHERE conversation_id = $1`, delete.ID); err != nil {
			return fmt.Errorf("failed to delete conversation messages: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM conversation WHERE id = $1`, delete.ID)
		if err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("conversation %d: %w", delete.ID, store.ErrNotFound)
		}
		return nil
	})
}
