package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateTableIfNotExists prepares the Postgres schema used by SQLGateway.
func CreateTableIfNotExists(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username VARCHAR(255) NOT NULL UNIQUE,
    password VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users (id),
    title TEXT NOT NULL,
    due_date TIMESTAMPTZ NOT NULL,
    status VARCHAR(32) NOT NULL,
    category VARCHAR(32) NOT NULL,
    priority VARCHAR(32) NOT NULL
);

CREATE INDEX IF NOT EXISTS tasks_user_id_idx ON tasks (user_id);
`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}
	return nil
}

// DeleteAllTable drops the schema. Used to reset integration databases.
func DeleteAllTable(ctx context.Context, db *sql.DB) error {
	query := `
    DROP TABLE IF EXISTS tasks;
    DROP TABLE IF EXISTS users;
    `

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error deleting tables: %w", err)
	}
	return nil
}
