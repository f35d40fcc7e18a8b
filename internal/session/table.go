package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting is a key/value row in the settings table.
type Setting struct {
	Name  string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

// TableMarker keeps the marker as a row of the settings table, next to the
// records themselves.
type TableMarker struct {
	db *gorm.DB
}

// NewTableMarker migrates the settings table and returns the marker.
func NewTableMarker(db *gorm.DB) (*TableMarker, error) {
	if err := db.AutoMigrate(&Setting{}); err != nil {
		return nil, fmt.Errorf("%w: failed to migrate settings: %w", ErrMarkerStorage, err)
	}
	return &TableMarker{db: db}, nil
}

func (m *TableMarker) Load(ctx context.Context) (uuid.UUID, bool, error) {
	var s Setting
	err := m.db.WithContext(ctx).Where("name = ?", Key).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %w", ErrMarkerStorage, err)
	}

	id, err := uuid.Parse(s.Value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: malformed marker %q: %w", ErrMarkerStorage, s.Value, err)
	}
	return id, true, nil
}

func (m *TableMarker) Save(ctx context.Context, id uuid.UUID) error {
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Name: Key, Value: id.String()}).Error
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerStorage, err)
	}
	return nil
}
