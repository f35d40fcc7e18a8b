package store

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"advanced-todo/internal/models"
)

type SortOption string

const (
	SortNone     SortOption = ""
	SortPriority SortOption = "priority"
	SortStatus   SortOption = "status"
)

func ParseSortOption(raw string) (SortOption, error) {
	switch opt := SortOption(raw); opt {
	case SortNone, SortPriority, SortStatus:
		return opt, nil
	default:
		return SortNone, fmt.Errorf("unknown sort option %q", raw)
	}
}

// Sorted returns the task list ordered by opt, ties broken by due date.
// SortNone keeps the stored order.
func (s *TaskStore) Sorted(opt SortOption) []models.Task {
	tasks := s.Tasks()

	var rank func(models.Task) int
	switch opt {
	case SortPriority:
		rank = func(t models.Task) int { return slices.Index(models.Priorities, t.Priority) }
	case SortStatus:
		rank = func(t models.Task) int { return slices.Index(models.Statuses, t.Status) }
	default:
		return tasks
	}

	slices.SortStableFunc(tasks, func(a, b models.Task) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return a.DueDate.Compare(b.DueDate)
	})
	return tasks
}

// TasksOn returns the tasks due on the calendar day of day, in day's location.
func (s *TaskStore) TasksOn(day time.Time) []models.Task {
	y, m, d := day.Date()
	loc := day.Location()

	var out []models.Task
	for _, t := range s.Tasks() {
		ty, tm, td := t.DueDate.In(loc).Date()
		if ty == y && tm == m && td == d {
			out = append(out, t)
		}
	}
	return out
}

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Date    time.Time     `json:"date"`
	InMonth bool          `json:"in_month"`
	Tasks   []models.Task `json:"tasks"`
}

// Calendar lays out the month containing month as a grid whose weeks start
// on Sunday. The grid opens with the tail of the previous month and ends on
// the last day of the month.
func (s *TaskStore) Calendar(month time.Time) []CalendarDay {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	lead := int(first.Weekday())
	days := first.AddDate(0, 1, -1).Day()

	byDay := make(map[string][]models.Task)
	for _, t := range s.Tasks() {
		key := t.DueDate.In(loc).Format(time.DateOnly)
		byDay[key] = append(byDay[key], t)
	}

	grid := make([]CalendarDay, 0, lead+days)
	for i := -lead; i < days; i++ {
		date := first.AddDate(0, 0, i)
		tasks := byDay[date.Format(time.DateOnly)]
		if tasks == nil {
			tasks = []models.Task{}
		}
		grid = append(grid, CalendarDay{
			Date:    date,
			InMonth: i >= 0,
			Tasks:   tasks,
		})
	}
	return grid
}
