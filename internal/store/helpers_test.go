package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"advanced-todo/internal/models"
	"advanced-todo/internal/notify"
	"advanced-todo/internal/repository"
	"advanced-todo/pkg/database"
	"advanced-todo/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeScheduler struct {
	mu        sync.Mutex
	pending   map[uuid.UUID]notify.Request
	scheduled []notify.Request
	cancelled []uuid.UUID
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[uuid.UUID]notify.Request)}
}

func (f *fakeScheduler) Schedule(req notify.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[req.ID] = req
	f.scheduled = append(f.scheduled, req)
}

func (f *fakeScheduler) Cancel(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	f.cancelled = append(f.cancelled, id)
}

type memMarker struct {
	id  uuid.UUID
	set bool
}

func (m *memMarker) Load(context.Context) (uuid.UUID, bool, error) {
	return m.id, m.set, nil
}

func (m *memMarker) Save(_ context.Context, id uuid.UUID) error {
	m.id, m.set = id, true
	return nil
}

type fixture struct {
	db     *gorm.DB
	gw     *repository.GormGateway
	sched  *fakeScheduler
	marker *memMarker
	tasks  *TaskStore
	auth   *AuthStore
	now    time.Time
}

var baseTime = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLog(t, logger.Nop())
}

func newFixtureWithLog(t *testing.T, log *logger.Loggers) *fixture {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	f := &fixture{
		db:     db,
		gw:     repository.NewGormGateway(db),
		sched:  newFakeScheduler(),
		marker: &memMarker{},
		now:    baseTime,
	}
	f.tasks = NewTaskStore(f.gw, f.sched, log, notify.DefaultLead)
	f.tasks.now = func() time.Time { return f.now }
	f.auth = NewAuthStore(f.gw, f.marker, f.tasks, log)
	return f
}

// restart builds fresh stores over the same database and marker.
func (f *fixture) restart() {
	f.tasks = NewTaskStore(f.gw, f.sched, logger.Nop(), notify.DefaultLead)
	f.tasks.now = func() time.Time { return f.now }
	f.auth = NewAuthStore(f.gw, f.marker, f.tasks, logger.Nop())
}

// failingFetches wraps a gateway and fails task fetches for one owner.
type failingFetches struct {
	repository.Gateway
	owner uuid.UUID
}

func (g *failingFetches) FetchTasks(ctx context.Context, filter repository.TaskFilter) ([]repository.TaskRecord, error) {
	if filter.OwnerID == g.owner {
		return nil, fmt.Errorf("%w: connection reset", repository.ErrStorage)
	}
	return g.Gateway.FetchTasks(ctx, filter)
}

// useGateway rebuilds the stores over gw, keeping the current clock.
func (f *fixture) useGateway(gw repository.Gateway) {
	f.tasks = NewTaskStore(gw, f.sched, logger.Nop(), notify.DefaultLead)
	f.tasks.now = func() time.Time { return f.now }
	f.auth = NewAuthStore(gw, f.marker, f.tasks, logger.Nop())
}

func (f *fixture) signUp(t *testing.T, username, password string) {
	t.Helper()
	_, err := f.auth.SignUp(context.Background(), username, password)
	require.NoError(t, err)
}

func (f *fixture) input(title string, in time.Duration) TaskInput {
	return TaskInput{
		Title:    title,
		DueDate:  f.now.Add(in),
		Category: models.CategoryWork,
		Priority: models.PriorityMedium,
	}
}
