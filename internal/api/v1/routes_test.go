package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"advanced-todo/configs"
	"advanced-todo/internal/config"
	"advanced-todo/internal/middleware"
	"advanced-todo/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type taskJSON struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	DueDate  time.Time `json:"due_date"`
	Status   string    `json:"status"`
	Priority string    `json:"priority"`
	Category string    `json:"category"`
}

func createTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := configs.Config{
		DBDriver:             configs.DriverSQLite,
		SQLitePath:           filepath.Join(t.TempDir(), "todo.db"),
		SessionStore:         configs.SessionStoreDB,
		JWTSecret:            "test-secret",
		TokenTTL:             time.Hour,
		NotificationsEnabled: true,
		ReminderLead:         time.Hour,
	}
	deps, err := config.New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	app := fiber.New()
	app.Use(middleware.ErrorHandler(deps.Log))
	RegisterRoutes(app, deps)
	return app
}

func call(t *testing.T, app *fiber.App, method, url, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func signUp(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/api/v1/signup", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func newTask(title string, due time.Time, priority string) map[string]interface{} {
	return map[string]interface{}{
		"title":    title,
		"due_date": due.Format(time.RFC3339),
		"category": "Work",
		"priority": priority,
	}
}

func decodeTasks(t *testing.T, env envelope) []taskJSON {
	t.Helper()
	var tasks []taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	return tasks
}

func TestAuthFlow(t *testing.T) {
	app := createTestApp(t)
	token := signUp(t, app, "alice", "p1")

	status, env := call(t, app, http.MethodPost, "/api/v1/signup", "", map[string]string{
		"username": "alice",
		"password": "p2",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = call(t, app, http.MethodGet, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"username":"alice"`)
	assert.NotContains(t, string(env.Data), "p1", "passwords never leave the server")

	status, _ = call(t, app, http.MethodPost, "/api/v1/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "tokens die with the session")

	status, _ = call(t, app, http.MethodPost, "/api/v1/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = call(t, app, http.MethodPost, "/api/v1/login", "", map[string]string{
		"username": "alice",
		"password": "p1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"token"`)
}

func TestSignUpValidation(t *testing.T) {
	app := createTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/v1/signup", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation error", env.Message)
}

func TestTaskEndpoints(t *testing.T) {
	app := createTestApp(t)
	token := signUp(t, app, "alice", "p1")
	now := time.Now()

	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", token, newTask("soon", now.Add(30*time.Minute), "Low"))
	require.Equal(t, http.StatusCreated, status, env.Message)
	var soon taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &soon))
	assert.Equal(t, "Near Due", soon.Status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/tasks", token, newTask("later", now.Add(72*time.Hour), "High"))
	require.Equal(t, http.StatusCreated, status)

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks?sort=priority", token, nil)
	require.Equal(t, http.StatusOK, status)
	tasks := decodeTasks(t, env)
	require.Len(t, tasks, 2)
	assert.Equal(t, "later", tasks[0].Title)

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks?sort=title", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, app, http.MethodPost, "/api/v1/tasks/"+soon.ID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, status)
	var toggled taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &toggled))
	assert.Equal(t, "Completed", toggled.Status)

	status, env = call(t, app, http.MethodPut, "/api/v1/tasks/"+soon.ID, token, newTask("soon, moved", now.Add(48*time.Hour), "Medium"))
	require.Equal(t, http.StatusOK, status)
	var edited taskJSON
	require.NoError(t, json.Unmarshal(env.Data, &edited))
	assert.Equal(t, "Pending", edited.Status)
	assert.Equal(t, "soon, moved", edited.Title)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/tasks/"+soon.ID, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/tasks/"+soon.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/tasks/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, status)
	tasks = decodeTasks(t, env)
	require.Len(t, tasks, 1)
	assert.Equal(t, "later", tasks[0].Title)
}

func TestTaskValidation(t *testing.T) {
	app := createTestApp(t)
	token := signUp(t, app, "alice", "p1")

	bad := newTask("x", time.Now().Add(time.Hour), "Urgent")
	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", token, bad)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation error", env.Message)

	status, _ = call(t, app, http.MethodPost, "/api/v1/tasks", "", newTask("x", time.Now().Add(time.Hour), "Low"))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCalendarEndpoints(t *testing.T) {
	app := createTestApp(t)
	token := signUp(t, app, "alice", "p1")

	due := time.Date(2031, 3, 20, 9, 0, 0, 0, time.Local)
	status, _ := call(t, app, http.MethodPost, "/api/v1/tasks", token, newTask("spring", due, "Low"))
	require.Equal(t, http.StatusCreated, status)

	status, env := call(t, app, http.MethodGet, "/api/v1/tasks/day/2031-03-20", token, nil)
	require.Equal(t, http.StatusOK, status)
	tasks := decodeTasks(t, env)
	require.Len(t, tasks, 1)
	assert.Equal(t, "spring", tasks[0].Title)

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks/day/20-03-2031", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks/calendar?month=2031-03", token, nil)
	require.Equal(t, http.StatusOK, status)
	var grid []struct {
		Date    time.Time  `json:"date"`
		InMonth bool       `json:"in_month"`
		Tasks   []taskJSON `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grid))

	first := time.Date(2031, 3, 1, 0, 0, 0, 0, time.Local)
	lead := int(first.Weekday())
	require.Len(t, grid, lead+31)
	day := grid[lead+19]
	assert.True(t, day.InMonth)
	assert.Equal(t, 20, day.Date.Day())
	require.Len(t, day.Tasks, 1)
	assert.Equal(t, "spring", day.Tasks[0].Title)

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks/calendar?month=March", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	app := createTestApp(t)
	token := signUp(t, app, "alice", "p1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
