// Package store holds the in-memory session and task state shared by every
// client of the application, kept in sync with the persistence gateway.
package store

import (
	"errors"
	"sync"

	"advanced-todo/internal/models"
)

var (
	ErrNoCurrentUser      = errors.New("no user is logged in")
	ErrTaskNotFound       = errors.New("task not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type EventKind string

const (
	EventTasksChanged   EventKind = "tasks_changed"
	EventSessionChanged EventKind = "session_changed"
)

// Event is emitted after a state change. Tasks is a snapshot of the visible
// task list; User is nil when nobody is logged in.
type Event struct {
	Kind  EventKind     `json:"kind"`
	Tasks []models.Task `json:"tasks,omitempty"`
	User  *models.User  `json:"user,omitempty"`
}

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (l *listeners) add(fn func(Event)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(Event))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) emit(e Event) {
	l.mu.Lock()
	fns := make([]func(Event), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
