package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"advanced-todo/internal/models"
	"advanced-todo/internal/notify"
	"advanced-todo/internal/repository"
	"advanced-todo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskInput carries the user-editable fields of a task.
type TaskInput struct {
	Title    string
	DueDate  time.Time
	Category models.Category
	Priority models.Priority
}

// TaskStore is the task list of the current user. Operations are serialised
// and every change is written through to the gateway.
type TaskStore struct {
	mu    sync.Mutex
	user  *models.User
	tasks []models.Task

	gw    repository.Gateway
	sched notify.Scheduler
	log   *logger.Loggers
	lead  time.Duration
	now   func() time.Time

	subs listeners
}

func NewTaskStore(gw repository.Gateway, sched notify.Scheduler, log *logger.Loggers, lead time.Duration) *TaskStore {
	return &TaskStore{
		tasks: []models.Task{},
		gw:    gw,
		sched: sched,
		log:   log,
		lead:  lead,
		now:   time.Now,
	}
}

// Subscribe registers fn for every change of the task list. The returned
// function removes it.
func (s *TaskStore) Subscribe(fn func(Event)) func() {
	return s.subs.add(fn)
}

// SetCurrentUser binds the store to u and loads its tasks. A nil user clears
// the list.
func (s *TaskStore) SetCurrentUser(ctx context.Context, u *models.User) error {
	snapshot, err := s.bind(ctx, u)
	s.subs.emit(snapshot)
	return err
}

// bind switches the bound user without notifying listeners. The previous
// list is dropped before the fetch, so a failed fetch leaves it empty.
func (s *TaskStore) bind(ctx context.Context, u *models.User) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.tasks = []models.Task{}
	if u != nil {
		bound := *u
		s.user = &bound
	}
	err := s.fetchLocked(ctx)
	return s.snapshotLocked(), err
}

// CurrentUser returns the user the store is bound to.
func (s *TaskStore) CurrentUser() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// FetchTasks replaces the list with the current user's persisted tasks.
func (s *TaskStore) FetchTasks(ctx context.Context) error {
	s.mu.Lock()
	err := s.fetchLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.subs.emit(snapshot)
	return err
}

func (s *TaskStore) fetchLocked(ctx context.Context) error {
	if s.user == nil {
		s.tasks = []models.Task{}
		return nil
	}

	recs, err := s.gw.FetchTasks(ctx, repository.TaskFilter{OwnerID: s.user.ID})
	if err != nil {
		s.log.Error.Error("Failed to fetch tasks", zap.String("user_id", s.user.ID.String()), zap.Error(err))
		return err
	}

	now := s.now()
	tasks := make([]models.Task, 0, len(recs))
	for _, rec := range recs {
		tasks = append(tasks, s.fromRecord(rec, now))
	}
	s.tasks = tasks
	return nil
}

// AddTask creates a task for the current user and schedules its reminder.
func (s *TaskStore) AddTask(ctx context.Context, in TaskInput) (models.Task, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		s.log.Security.Warn("Task not added, no user is logged in", zap.String("title", in.Title))
		return models.Task{}, ErrNoCurrentUser
	}

	now := s.now()
	task := models.Task{
		ID:       uuid.New(),
		Title:    in.Title,
		DueDate:  in.DueDate,
		Status:   models.DeriveStatus(in.DueDate, now),
		Priority: in.Priority,
		Category: in.Category,
	}
	s.tasks = append(s.tasks, task)
	s.gw.InsertTask(toRecord(task, s.user.ID))
	s.flushLocked(ctx, "add", task.ID)
	s.remindLocked(task, now)

	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Audit.Info("Task added", zap.String("task_id", task.ID.String()), zap.String("status", string(task.Status)))
	s.subs.emit(snapshot)
	return task, nil
}

// EditTask replaces every editable field of task id. The status is derived
// again from the new due date, dropping a manual completion, and the reminder
// follows the new due date.
func (s *TaskStore) EditTask(ctx context.Context, id uuid.UUID, in TaskInput) (models.Task, error) {
	s.mu.Lock()
	i, err := s.indexLocked(id)
	if err != nil {
		s.mu.Unlock()
		s.log.Audit.Info("Task not edited", zap.String("task_id", id.String()), zap.Error(err))
		return models.Task{}, err
	}

	now := s.now()
	task := &s.tasks[i]
	task.Title = in.Title
	task.DueDate = in.DueDate
	task.Category = in.Category
	task.Priority = in.Priority
	task.Status = models.DeriveStatus(in.DueDate, now)
	edited := *task

	s.gw.UpdateTask(toRecord(edited, s.user.ID))
	s.flushLocked(ctx, "edit", id)
	s.remindLocked(edited, now)

	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Audit.Info("Task edited", zap.String("task_id", id.String()), zap.String("status", string(edited.Status)))
	s.subs.emit(snapshot)
	return edited, nil
}

// DeleteTask removes task id and cancels its reminder.
func (s *TaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	i, err := s.indexLocked(id)
	if err != nil {
		s.mu.Unlock()
		s.log.Audit.Info("Task not deleted", zap.String("task_id", id.String()), zap.Error(err))
		return err
	}

	s.tasks = slices.Delete(s.tasks, i, i+1)
	s.gw.DeleteTasks(repository.TaskFilter{ID: id, OwnerID: s.user.ID})
	s.flushLocked(ctx, "delete", id)
	s.sched.Cancel(id)

	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Audit.Info("Task deleted", zap.String("task_id", id.String()))
	s.subs.emit(snapshot)
	return nil
}

// ToggleCompletion marks task id Completed, or reopens a completed task with
// the status its due date gives it. The change is persisted.
func (s *TaskStore) ToggleCompletion(ctx context.Context, id uuid.UUID) (models.Task, error) {
	s.mu.Lock()
	i, err := s.indexLocked(id)
	if err != nil {
		s.mu.Unlock()
		s.log.Audit.Info("Task not toggled", zap.String("task_id", id.String()), zap.Error(err))
		return models.Task{}, err
	}

	task := &s.tasks[i]
	if task.Status == models.StatusCompleted {
		task.Status = models.DeriveStatus(task.DueDate, s.now())
	} else {
		task.Status = models.StatusCompleted
	}
	toggled := *task

	s.gw.UpdateTask(toRecord(toggled, s.user.ID))
	s.flushLocked(ctx, "toggle", id)

	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Audit.Info("Task toggled", zap.String("task_id", id.String()), zap.String("status", string(toggled.Status)))
	s.subs.emit(snapshot)
	return toggled, nil
}

// RefreshStatuses derives the status of every open task again against the
// current time. It reports whether anything changed; changes stay in memory.
func (s *TaskStore) RefreshStatuses() bool {
	s.mu.Lock()
	now := s.now()
	changed := false
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Status == models.StatusCompleted {
			continue
		}
		if st := models.DeriveStatus(t.DueDate, now); st != t.Status {
			t.Status = st
			changed = true
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.subs.emit(snapshot)
	}
	return changed
}

// Tasks returns a copy of the visible task list.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

// Task returns the visible task with the given id.
func (s *TaskStore) Task(id uuid.UUID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexLocked(id)
	if err != nil {
		return models.Task{}, err
	}
	return s.tasks[i], nil
}

func (s *TaskStore) indexLocked(id uuid.UUID) (int, error) {
	if s.user == nil {
		return -1, ErrNoCurrentUser
	}
	i := slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return i, nil
}

// flushLocked commits the gateway queue. Failures are logged only; the
// in-memory change stands and the queue is retried by the next flush.
func (s *TaskStore) flushLocked(ctx context.Context, op string, id uuid.UUID) {
	if err := s.gw.Flush(ctx); err != nil {
		s.log.Error.Error("Failed to persist task change",
			zap.String("op", op),
			zap.String("task_id", id.String()),
			zap.Int("pending", s.gw.Pending()),
			zap.Error(err))
	}
}

func (s *TaskStore) remindLocked(task models.Task, now time.Time) {
	req, ok := notify.ReminderFor(task, s.lead, now)
	if !ok {
		s.sched.Cancel(task.ID)
		return
	}
	s.sched.Schedule(req)
}

func (s *TaskStore) snapshotLocked() Event {
	e := Event{Kind: EventTasksChanged, Tasks: slices.Clone(s.tasks)}
	if s.user != nil {
		u := *s.user
		e.User = &u
	}
	return e
}

func toRecord(t models.Task, owner uuid.UUID) repository.TaskRecord {
	return repository.TaskRecord{
		ID:       t.ID,
		UserID:   owner,
		Title:    t.Title,
		DueDate:  t.DueDate,
		Status:   string(t.Status),
		Category: string(t.Category),
		Priority: string(t.Priority),
	}
}

// fromRecord decodes rec, deriving the status of open tasks against now.
func (s *TaskStore) fromRecord(rec repository.TaskRecord, now time.Time) models.Task {
	t := models.Task{
		ID:       rec.ID,
		Title:    rec.Title,
		DueDate:  rec.DueDate,
		Status:   models.DecodeStatus(rec.Status, s.log.System),
		Priority: models.DecodePriority(rec.Priority, s.log.System),
		Category: models.DecodeCategory(rec.Category, s.log.System),
	}
	if t.Status != models.StatusCompleted {
		t.Status = models.DeriveStatus(t.DueDate, now)
	}
	return t
}
