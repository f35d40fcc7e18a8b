package v1

import (
	"advanced-todo/internal/api/v1/handlers"
	"advanced-todo/internal/config"
	"advanced-todo/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	h := handlers.New(deps)
	guard := middleware.UseToken(deps.Tokens, deps.Auth, deps.Log)

	api := app.Group("/api/v1")

	// Auth
	api.Post("/signup", h.SignUp)
	api.Post("/login", h.Login)
	api.Post("/logout", guard, h.Logout)
	api.Get("/session", h.Session)

	// Task
	taskRoutes := api.Group("/tasks", guard)
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/calendar", h.Calendar)
	taskRoutes.Get("/day/:date", h.TasksOnDay)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)
	taskRoutes.Post("/:id/toggle", h.ToggleTask)

	// Reminders and live updates
	api.Get("/ws", guard, handlers.RequireUpgrade, websocket.New(h.Stream))
}
