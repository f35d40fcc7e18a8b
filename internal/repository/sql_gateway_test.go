package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"advanced-todo/pkg/database"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres starts a disposable Postgres container and returns a gateway
// over a fresh schema. Skipped in -short mode or when docker is unavailable.
func setupPostgres(t *testing.T) *SQLGateway {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 90 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=todo",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=todo_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("host=localhost port=%s user=todo password=secret dbname=todo_test sslmode=disable",
		resource.GetPort("5432/tcp"))

	ctx := context.Background()
	var gw *SQLGateway
	err = pool.Retry(func() error {
		db, err := database.OpenPostgres(ctx, dsn)
		if err != nil {
			return err
		}
		gw = NewSQLGateway(db)
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.db.Close() })

	require.NoError(t, DeleteAllTable(ctx, gw.db))
	require.NoError(t, CreateTableIfNotExists(ctx, gw.db))
	return gw
}

func TestSQLGateway(t *testing.T) {
	g := setupPostgres(t)
	ctx := context.Background()

	alice := seedUser(t, g, "alice")
	seedUser(t, g, "bob")

	t.Run("credentials", func(t *testing.T) {
		users, err := g.FetchUsers(ctx, UserByCredentials("alice", "pw-alice"))
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		users, err = g.FetchUsers(ctx, UserByCredentials("alice", "wrong"))
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("task lifecycle", func(t *testing.T) {
		due := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
		task := newTaskRecord(alice.ID, "write report", due)
		g.InsertTask(task)
		require.NoError(t, g.Flush(ctx))

		got, err := g.FetchTasks(ctx, TaskFilter{OwnerID: alice.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].DueDate.Equal(due))

		task.Status = "Completed"
		g.UpdateTask(task)
		g.DeleteTasks(TaskFilter{ID: uuid.New()})
		require.NoError(t, g.Flush(ctx))

		got, err = g.FetchTasks(ctx, TaskFilter{ID: task.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Completed", got[0].Status)

		g.DeleteTasks(TaskFilter{ID: task.ID, OwnerID: alice.ID})
		require.NoError(t, g.Flush(ctx))

		got, err = g.FetchTasks(ctx, TaskFilter{OwnerID: alice.ID})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("update scoped to owner", func(t *testing.T) {
		task := newTaskRecord(alice.ID, "alice only", time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
		g.InsertTask(task)
		require.NoError(t, g.Flush(ctx))

		foreign := task
		foreign.UserID = uuid.New()
		foreign.Title = "rewritten"
		g.UpdateTask(foreign)
		require.NoError(t, g.Flush(ctx))

		got, err := g.FetchTasks(ctx, TaskFilter{ID: task.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "alice only", got[0].Title)
	})

	t.Run("rejected title is dropped", func(t *testing.T) {
		bad := newTaskRecord(alice.ID, "nul\x00byte", time.Now())
		good := newTaskRecord(alice.ID, "fine", time.Now())
		g.InsertTask(bad)
		g.InsertTask(good)

		for i := 0; i < maxAttempts; i++ {
			require.Error(t, g.Flush(ctx))
		}
		assert.Zero(t, g.Pending())

		got, err := g.FetchTasks(ctx, TaskFilter{ID: good.ID})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("duplicate username", func(t *testing.T) {
		g.InsertUser(UserRecord{ID: uuid.New(), Username: "alice", Password: "x"})
		err := g.Flush(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConflict))
		assert.Zero(t, g.Pending())
	})
}
