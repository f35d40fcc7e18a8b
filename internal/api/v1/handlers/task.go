package handlers

import (
	"time"

	"advanced-todo/internal/models"
	"advanced-todo/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type taskRequest struct {
	Title    string    `json:"title" validate:"required,max=255"`
	DueDate  time.Time `json:"due_date" validate:"required"`
	Category string    `json:"category" validate:"required,oneof=Work Personal Urgent Other"`
	Priority string    `json:"priority" validate:"required,oneof=Low Medium High"`
}

func (r taskRequest) input() (store.TaskInput, error) {
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return store.TaskInput{}, err
	}
	priority, err := models.ParsePriority(r.Priority)
	if err != nil {
		return store.TaskInput{}, err
	}
	return store.TaskInput{
		Title:    r.Title,
		DueDate:  r.DueDate,
		Category: category,
		Priority: priority,
	}, nil
}

func (h *Handler) bindTask(c *fiber.Ctx, action string) (store.TaskInput, error) {
	var req taskRequest
	if err := h.bind(c, &req, action); err != nil {
		return store.TaskInput{}, err
	}
	return req.input()
}

// ListTasks returns the session user's tasks, optionally sorted by
// ?sort=priority or ?sort=status.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	opt, err := store.ParseSortOption(c.Query("sort"))
	if err != nil {
		return fail(c, 400, err.Error())
	}
	return success(c, 200, "Tasks fetched successfully", h.deps.Tasks.Sorted(opt))
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	in, err := h.bindTask(c, "create task")
	if err != nil {
		return badRequest(c, err)
	}

	task, err := h.deps.Tasks.AddTask(c.UserContext(), in)
	if err != nil {
		return storeError(c, err)
	}
	return success(c, 201, "Task created successfully", task)
}

func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, 400, "Invalid task ID")
	}
	in, err := h.bindTask(c, "update task")
	if err != nil {
		return badRequest(c, err)
	}

	task, err := h.deps.Tasks.EditTask(c.UserContext(), id, in)
	if err != nil {
		return storeError(c, err)
	}
	return success(c, 200, "Task updated successfully", task)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, 400, "Invalid task ID")
	}

	if err := h.deps.Tasks.DeleteTask(c.UserContext(), id); err != nil {
		return storeError(c, err)
	}
	return success(c, 200, "Task deleted successfully", nil)
}

func (h *Handler) ToggleTask(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, 400, "Invalid task ID")
	}

	task, err := h.deps.Tasks.ToggleCompletion(c.UserContext(), id)
	if err != nil {
		return storeError(c, err)
	}
	return success(c, 200, "Task updated successfully", task)
}
