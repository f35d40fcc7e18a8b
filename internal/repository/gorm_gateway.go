package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormGateway stores records through gorm. It is the on-device store backed
// by SQLite.
type GormGateway struct {
	db    *gorm.DB
	queue opQueue[*gorm.DB]
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

// Migrate creates or updates the users and tasks tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserRecord{}, &TaskRecord{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (g *GormGateway) FetchUsers(ctx context.Context, filter UserFilter) ([]UserRecord, error) {
	q := g.db.WithContext(ctx)
	if filter.ID != uuid.Nil {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.Username != nil {
		q = q.Where("username = ?", *filter.Username)
	}
	if filter.Password != nil {
		q = q.Where("password = ?", *filter.Password)
	}

	var users []UserRecord
	if err := q.Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to fetch users: %w", ErrStorage, err)
	}
	return users, nil
}

func (g *GormGateway) FetchTasks(ctx context.Context, filter TaskFilter) ([]TaskRecord, error) {
	var tasks []TaskRecord
	err := whereTask(g.db.WithContext(ctx), filter).
		Order("due_date").
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch tasks: %w", ErrStorage, err)
	}
	return tasks, nil
}

func (g *GormGateway) InsertUser(rec UserRecord) {
	g.queue.push(func(tx *gorm.DB) error {
		return translate(tx.Create(&rec).Error)
	})
}

func (g *GormGateway) InsertTask(rec TaskRecord) {
	g.queue.push(func(tx *gorm.DB) error {
		return translate(tx.Create(&rec).Error)
	})
}

// UpdateTask only touches the task when rec.UserID still owns it.
func (g *GormGateway) UpdateTask(rec TaskRecord) {
	g.queue.push(func(tx *gorm.DB) error {
		return tx.Model(&TaskRecord{}).
			Where("id = ? AND user_id = ?", rec.ID, rec.UserID).
			Updates(map[string]any{
				"title":    rec.Title,
				"due_date": rec.DueDate,
				"status":   rec.Status,
				"category": rec.Category,
				"priority": rec.Priority,
			}).Error
	})
}

func (g *GormGateway) DeleteTasks(filter TaskFilter) {
	if filter.empty() {
		return
	}
	g.queue.push(func(tx *gorm.DB) error {
		return whereTask(tx, filter).Delete(&TaskRecord{}).Error
	})
}

func (g *GormGateway) Flush(ctx context.Context) error {
	return g.queue.flush(func(apply func(tx *gorm.DB) error) error {
		return g.db.WithContext(ctx).Transaction(apply)
	})
}

func (g *GormGateway) Pending() int {
	return g.queue.len()
}

func whereTask(q *gorm.DB, filter TaskFilter) *gorm.DB {
	if filter.ID != uuid.Nil {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.OwnerID != uuid.Nil {
		q = q.Where("user_id = ?", filter.OwnerID)
	}
	return q
}

// translate needs gorm.Config.TranslateError so the dialect maps unique
// violations to gorm.ErrDuplicatedKey.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
