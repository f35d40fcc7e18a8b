package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// TasksOnDay lists the tasks due on :date (YYYY-MM-DD, server local time).
func (h *Handler) TasksOnDay(c *fiber.Ctx) error {
	day, err := time.ParseInLocation(time.DateOnly, c.Params("date"), time.Local)
	if err != nil {
		return fail(c, 400, "Invalid date, expected YYYY-MM-DD")
	}
	return success(c, 200, "Tasks fetched successfully", h.deps.Tasks.TasksOn(day))
}

// Calendar returns the month grid for ?month=YYYY-MM, the current month by
// default.
func (h *Handler) Calendar(c *fiber.Ctx) error {
	month := time.Now()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, time.Local)
		if err != nil {
			return fail(c, 400, "Invalid month, expected YYYY-MM")
		}
		month = parsed
	}
	return success(c, 200, "Calendar fetched successfully", h.deps.Tasks.Calendar(month))
}
