package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/taskdeck/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `INSERT INTO user (uid, email, nickname, password_hash, created_ts, updated_ts)
	         VALUES (?, ?, ?, ?, ?, ?)
	         RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.Email, create.Nickname, create.PasswordHash, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.Email; v != nil {
		where, args = append(where, "email = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, uid, email, nickname, password_hash, created_ts, updated_ts
		 FROM user WHERE %s ORDER BY id ASC`,
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.User
	for rows.Next() {
		u := &store.User{}
		if err := rows.Scan(&u.ID, &u.UID, &u.Email, &u.Nickname, &u.PasswordHash, &u.CreatedTs, &u.UpdatedTs); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
