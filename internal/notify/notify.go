// Package notify schedules one-shot task reminders.
package notify

import (
	"errors"
	"fmt"
	"time"

	"advanced-todo/internal/models"

	"github.com/google/uuid"
)

const (
	ReminderTitle = "Task Reminder"
	DefaultLead   = time.Hour
)

var ErrPermissionDenied = errors.New("notification permission denied")

// Request is a single reminder. ID is the task id, so a task has at most one
// pending reminder.
type Request struct {
	ID     uuid.UUID `json:"id"`
	FireAt time.Time `json:"fire_at"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

type Scheduler interface {
	// Schedule replaces any pending request with the same ID.
	Schedule(req Request)
	// Cancel is a no-op for unknown ids.
	Cancel(id uuid.UUID)
}

// Deliverer receives reminders when they fire.
type Deliverer interface {
	Deliver(req Request)
}

type DelivererFunc func(req Request)

func (f DelivererFunc) Deliver(req Request) { f(req) }

// ReminderFor builds the reminder for task, lead before its due date and
// truncated to the minute. A trigger that already passed is clamped to the
// due date; ok is false once the due date itself has passed.
func ReminderFor(task models.Task, lead time.Duration, now time.Time) (Request, bool) {
	fireAt := task.DueDate.Add(-lead).Truncate(time.Minute)
	if !fireAt.After(now) {
		if !task.DueDate.After(now) {
			return Request{}, false
		}
		fireAt = task.DueDate
	}

	return Request{
		ID:     task.ID,
		FireAt: fireAt,
		Title:  ReminderTitle,
		Body:   fmt.Sprintf("Your task '%s' is due soon!", task.Title),
	}, true
}
