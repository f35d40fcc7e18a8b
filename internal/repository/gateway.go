package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStorage wraps every failure coming from the underlying database.
	ErrStorage = errors.New("storage failure")

	// ErrConflict is returned by Flush when a unique constraint rejected a
	// queued operation. Only that operation is discarded.
	ErrConflict = errors.New("unique constraint violation")
)

// UserRecord is the persisted form of models.User.
type UserRecord struct {
	ID       uuid.UUID `gorm:"primaryKey;type:varchar(36)"`
	Username string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
}

func (UserRecord) TableName() string { return "users" }

// TaskRecord is the persisted form of models.Task. Enum fields hold their raw
// string values.
type TaskRecord struct {
	ID       uuid.UUID `gorm:"primaryKey;type:varchar(36)"`
	UserID   uuid.UUID `gorm:"index;not null;type:varchar(36)"`
	Title    string    `gorm:"not null"`
	DueDate  time.Time `gorm:"not null"`
	Status   string    `gorm:"not null"`
	Category string    `gorm:"not null"`
	Priority string    `gorm:"not null"`
}

func (TaskRecord) TableName() string { return "tasks" }

// UserFilter selects users. Nil fields and uuid.Nil are unconstrained.
type UserFilter struct {
	ID       uuid.UUID
	Username *string
	Password *string
}

func UserByID(id uuid.UUID) UserFilter {
	return UserFilter{ID: id}
}

func UserByUsername(username string) UserFilter {
	return UserFilter{Username: &username}
}

func UserByCredentials(username, password string) UserFilter {
	return UserFilter{Username: &username, Password: &password}
}

// TaskFilter selects tasks. uuid.Nil fields are unconstrained.
type TaskFilter struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (f TaskFilter) empty() bool {
	return f.ID == uuid.Nil && f.OwnerID == uuid.Nil
}

// Gateway is durable record storage. Inserts, updates and deletes are queued
// and only reach the database on Flush, which applies the whole queue in one
// transaction. Fetches read committed state.
type Gateway interface {
	FetchUsers(ctx context.Context, filter UserFilter) ([]UserRecord, error)
	FetchTasks(ctx context.Context, filter TaskFilter) ([]TaskRecord, error)

	InsertUser(rec UserRecord)
	InsertTask(rec TaskRecord)
	// UpdateTask matches on both rec.ID and rec.UserID.
	UpdateTask(rec TaskRecord)
	DeleteTasks(filter TaskFilter)

	// Flush commits the queue. A rejected operation rolls the transaction
	// back; it is discarded on conflict or after repeated rejections and the
	// remaining operations are retried. Other failures keep the queue for the
	// next Flush.
	Flush(ctx context.Context) error

	// Pending reports how many queued operations have not been committed.
	Pending() int
}
