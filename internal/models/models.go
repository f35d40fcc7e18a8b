package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the display state of a task. Every value except Completed is
// derived from the due date, see DeriveStatus.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusNearDue   Status = "Near Due"
	StatusOverdue   Status = "Overdue"
	StatusCompleted Status = "Completed"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryUrgent   Category = "Urgent"
	CategoryOther    Category = "Other"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusOverdue, StatusNearDue, StatusPending, StatusCompleted}

// Priorities lists every priority from most to least important.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

var Categories = []Category{CategoryWork, CategoryPersonal, CategoryUrgent, CategoryOther}

type Task struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	DueDate  time.Time `json:"due_date"`
	Status   Status    `json:"status"`
	Priority Priority  `json:"priority"`
	Category Category  `json:"category"`
}

// User is a credential record. Password is kept as entered.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Password string    `json:"-"`
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParsePriority parses user input strictly.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q", raw)
	}
	return p, nil
}

// ParseCategory parses user input strictly.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category %q", raw)
	}
	return c, nil
}

// DecodeStatus maps a persisted value back to a Status. Unknown values
// decode to Pending and are reported on log.
func DecodeStatus(raw string, log *zap.Logger) Status {
	s := Status(raw)
	if s.Valid() {
		return s
	}
	log.Warn("unknown persisted status, using default",
		zap.String("raw", raw), zap.String("default", string(StatusPending)))
	return StatusPending
}

// DecodePriority maps a persisted value back to a Priority, falling back to Low.
func DecodePriority(raw string, log *zap.Logger) Priority {
	p := Priority(raw)
	if p.Valid() {
		return p
	}
	log.Warn("unknown persisted priority, using default",
		zap.String("raw", raw), zap.String("default", string(PriorityLow)))
	return PriorityLow
}

// DecodeCategory maps a persisted value back to a Category, falling back to Other.
func DecodeCategory(raw string, log *zap.Logger) Category {
	c := Category(raw)
	if c.Valid() {
		return c
	}
	log.Warn("unknown persisted category, using default",
		zap.String("raw", raw), zap.String("default", string(CategoryOther)))
	return CategoryOther
}
