package handlers

import (
	"errors"

	"advanced-todo/internal/config"
	"advanced-todo/internal/repository"
	"advanced-todo/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the HTTP API on top of the shared stores.
type Handler struct {
	deps *config.Dependencies
}

func New(deps *config.Dependencies) *Handler {
	return &Handler{deps: deps}
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
	})
}

func success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data":    data,
	})
}

// bind decodes and validates the request body into req.
func (h *Handler) bind(c *fiber.Ctx, req interface{}, action string) error {
	if err := c.BodyParser(req); err != nil {
		h.deps.Log.Error.Error("Bad request in "+action, zap.Error(err))
		return err
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		h.deps.Log.Audit.Warn("Validation error in "+action, zap.Error(err))
		return err
	}
	return nil
}

// badRequest answers a failed bind.
func badRequest(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, 400, "Bad request")
	}
	return c.Status(400).JSON(fiber.Map{
		"message": "Validation error",
		"errors":  err.Error(),
		"success": false,
		"status":  400,
	})
}

// storeError maps store and storage failures to a response.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return fail(c, 404, "Task not found")
	case errors.Is(err, store.ErrDuplicateUsername):
		return fail(c, 409, "Username already exists")
	case errors.Is(err, store.ErrInvalidCredentials):
		return fail(c, 401, "Invalid username or password")
	case errors.Is(err, store.ErrNoCurrentUser):
		return fail(c, 401, "No user is logged in")
	case errors.Is(err, repository.ErrStorage):
		return fail(c, 500, "Storage error")
	default:
		return fail(c, 500, "Internal server error")
	}
}
