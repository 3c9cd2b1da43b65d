package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/store"
)

func (d *DB) CreateTask(ctx context.Context, create *store.Task) (*store.Task, error) {
	stmt := `INSERT INTO task (uid, creator_id, title, description, completed, created_ts, updated_ts)
	         VALUES (?, ?, ?, ?, ?, ?, ?)
	         RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, create.Title, create.Description, create.Completed, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error) {
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
	if v := find.Completed; v != nil {
		where, args = append(where, "completed = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, uid, creator_id, title, description, completed, created_ts, updated_ts
		 FROM task WHERE %s ORDER BY created_ts DESC, id DESC`,
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

	var list []*store.Task
	for rows.Next() {
		t := &store.Task{}
		if err := rows.Scan(&t.ID, &t.UID, &t.CreatorID, &t.Title, &t.Description, &t.Completed, &t.CreatedTs, &t.UpdatedTs); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (d *DB) UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = ?"), append(args, *v)
	}
	if v := update.Completed; v != nil {
		set, args = append(set, "completed = ?"), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.UID, update.CreatorID)
	stmt := fmt.Sprintf(
		`UPDATE task SET %s WHERE uid = ? AND creator_id = ?
		 RETURNING id, uid, creator_id, title, description, completed, created_ts, updated_ts`,
		strings.Join(set, ", "),
	)
	t := &store.Task{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).
		Scan(&t.ID, &t.UID, &t.CreatorID, &t.Title, &t.Description, &t.Completed, &t.CreatedTs, &t.UpdatedTs); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (d *DB) DeleteTask(ctx context.Context, delete *store.DeleteTask) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM task WHERE uid = ? AND creator_id = ?`,
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
