package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/taskdeck/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	stmt := `INSERT INTO message (uid, conversation_id, creator_id, role, content, created_ts)
	         VALUES ($1, $2, $3, $4, $5, $6)
	         RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.ConversationID, create.CreatorID, create.Role, create.Content, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ConversationID; v != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, uid, conversation_id, creator_id, role, content, created_ts
		 FROM message WHERE %s ORDER BY id ASC`,
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

	var list []*store.Message
	for rows.Next() {
		m := &store.Message{}
		if err := rows.Scan(&m.ID, &m.UID, &m.ConversationID, &m.CreatorID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
