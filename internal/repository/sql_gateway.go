package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

type sqlOp struct {
	ctx context.Context
	tx  *sql.Tx
}

// SQLGateway stores records in Postgres through database/sql and lib/pq.
type SQLGateway struct {
	db    *sql.DB
	queue opQueue[sqlOp]
}

func NewSQLGateway(db *sql.DB) *SQLGateway {
	return &SQLGateway{db: db}
}

func (g *SQLGateway) FetchUsers(ctx context.Context, filter UserFilter) ([]UserRecord, error) {
	var w where
	if filter.ID != uuid.Nil {
		w.add("id", filter.ID)
	}
	if filter.Username != nil {
		w.add("username", *filter.Username)
	}
	if filter.Password != nil {
		w.add("password", *filter.Password)
	}

	rows, err := g.db.QueryContext(ctx,
		"SELECT id, username, password FROM users"+w.String()+" ORDER BY username",
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch users: %w", ErrStorage, err)
	}
	defer rows.Close()

	users := []UserRecord{}
	for rows.Next() {
		var u UserRecord
		if err := rows.Scan(&u.ID, &u.Username, &u.Password); err != nil {
			return nil, fmt.Errorf("%w: failed to scan user: %w", ErrStorage, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate users: %w", ErrStorage, err)
	}
	return users, nil
}

func (g *SQLGateway) FetchTasks(ctx context.Context, filter TaskFilter) ([]TaskRecord, error) {
	w := taskWhere(filter)
	rows, err := g.db.QueryContext(ctx,
		"SELECT id, user_id, title, due_date, status, category, priority FROM tasks"+w.String()+" ORDER BY due_date, id",
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch tasks: %w", ErrStorage, err)
	}
	defer rows.Close()

	tasks := []TaskRecord{}
	for rows.Next() {
		var t TaskRecord
		err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.DueDate, &t.Status, &t.Category, &t.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan task: %w", ErrStorage, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate tasks: %w", ErrStorage, err)
	}
	return tasks, nil
}

func (g *SQLGateway) InsertUser(rec UserRecord) {
	g.queue.push(func(op sqlOp) error {
		_, err := op.tx.ExecContext(op.ctx,
			"INSERT INTO users (id, username, password) VALUES ($1, $2, $3)",
			rec.ID, rec.Username, rec.Password)
		return translatePQ(err)
	})
}

func (g *SQLGateway) InsertTask(rec TaskRecord) {
	g.queue.push(func(op sqlOp) error {
		_, err := op.tx.ExecContext(op.ctx,
			"INSERT INTO tasks (id, user_id, title, due_date, status, category, priority) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			rec.ID, rec.UserID, rec.Title, rec.DueDate, rec.Status, rec.Category, rec.Priority)
		return translatePQ(err)
	})
}

func (g *SQLGateway) UpdateTask(rec TaskRecord) {
	g.queue.push(func(op sqlOp) error {
		_, err := op.tx.ExecContext(op.ctx,
			"UPDATE tasks SET title = $1, due_date = $2, status = $3, category = $4, priority = $5 WHERE id = $6 AND user_id = $7",
			rec.Title, rec.DueDate, rec.Status, rec.Category, rec.Priority, rec.ID, rec.UserID)
		return err
	})
}

func (g *SQLGateway) DeleteTasks(filter TaskFilter) {
	if filter.empty() {
		return
	}
	w := taskWhere(filter)
	g.queue.push(func(op sqlOp) error {
		_, err := op.tx.ExecContext(op.ctx, "DELETE FROM tasks"+w.String(), w.args...)
		return err
	})
}

func (g *SQLGateway) Flush(ctx context.Context) error {
	return g.queue.flush(func(apply func(op sqlOp) error) error {
		tx, err := g.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := apply(sqlOp{ctx: ctx, tx: tx}); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func (g *SQLGateway) Pending() int {
	return g.queue.len()
}

// where accumulates "column = $n" conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(column string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func taskWhere(filter TaskFilter) where {
	var w where
	if filter.ID != uuid.Nil {
		w.add("id", filter.ID)
	}
	if filter.OwnerID != uuid.Nil {
		w.add("user_id", filter.OwnerID)
	}
	return w
}

func translatePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
