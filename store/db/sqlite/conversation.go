package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	stmt := `INSERT INTO conversation (uid, creator_id, title, created_ts, updated_ts)
	         VALUES (?, ?, ?, ?, ?)
	         RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, create.Title, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, uid, creator_id, title, created_ts, updated_ts
		 FROM conversation WHERE %s ORDER BY updated_ts DESC, id DESC`,
		strings.Join(where, " AND "),
	)
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
		if v := find.Offset; v != nil {
			query += fmt.Sprintf(" OFFSET %d", *v)
		}
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.Conversation
	for rows.Next() {
		c := &store.Conversation{}
		if err := rows.Scan(&c.ID, &c.UID, &c.CreatorID, &c.Title, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (d *DB) CountConversations(ctx context.Context, find *store.FindConversation) (int, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = ?"), append(args, *v)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM conversation WHERE %s`, strings.Join(where, " AND "))
	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.UID, update.CreatorID)
	stmt := fmt.Sprintf(
		`UPDATE conversation SET %s WHERE uid = ? AND creator_id = ?
		 RETURNING id, uid, creator_id, title, created_ts, updated_ts`,
		strings.Join(set, ", "),
	)
	c := &store.Conversation{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).
		Scan(&c.ID, &c.UID, &c.CreatorID, &c.Title, &c.CreatedTs, &c.UpdatedTs); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// DeleteConversation removes a conversation and its messages in one
// transaction. Foreign keys are disabled on the SQLite connection, so
// the cascade is done by hand.
func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int32
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM conversation WHERE uid = ? AND creator_id = ?`,
		delete.UID, delete.CreatorID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM message WHERE conversation_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
