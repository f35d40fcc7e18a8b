package models

import "time"

// NearDueWindow is how far ahead of now a due date still counts as near due.
const NearDueWindow = 24 * time.Hour

// DeriveStatus computes the status of a task due at due, as seen at now.
// It never returns StatusCompleted.
func DeriveStatus(due, now time.Time) Status {
	switch {
	case due.Before(now):
		return StatusOverdue
	case due.Before(now.Add(NearDueWindow)):
		return StatusNearDue
	default:
		return StatusPending
	}
}
