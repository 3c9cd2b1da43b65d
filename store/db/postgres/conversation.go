package postgres

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
	         VALUES ($1, $2, $3, $4, $5)
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
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
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
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
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.UID, update.CreatorID)
	stmt := fmt.Sprintf(
		`UPDATE conversation SET %s WHERE uid = %s AND creator_id = %s
		 RETURNING id, uid, creator_id, title, created_ts, updated_ts`,
		strings.Join(set, ", "), placeholder(len(args)-1), placeholder(len(args)),
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

// DeleteConversation removes a conversation; messages go with it via
// ON DELETE CASCADE.
func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM conversation WHERE uid = $1 AND creator_id = $2`,
		delete.UID, delete.CreatorID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
