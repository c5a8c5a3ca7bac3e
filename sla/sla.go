package sla

import (
	"fmt"
	"time"

	"civicdesk-be/models"
)

// Clock supplies "now" so the SLA computation stays deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Allowance maps a priority to its response allowance. An unrecognized
// priority deliberately falls back to MEDIUM's allowance.
func Allowance(priority models.IssuePriority) time.Duration {
	switch priority {
	case models.PriorityCritical:
		return 4 * time.Hour
	case models.PriorityHigh:
		return 24 * time.Hour
	case models.PriorityLow:
		return 168 * time.Hour
	default:
		return 72 * time.Hour
	}
}

// Status renders the current SLA urgency for an issue. Resolved and
// closed issues always report "Closed": the string describes current
// urgency, not historical compliance, so late resolutions never show as
// overdue. Open issues report "Overdue" past the allowance, otherwise
// the remaining time in hours while under three days remain and in
// floor days beyond that.
func Status(createdAt time.Time, status models.IssueStatus, priority models.IssuePriority, now time.Time) string {
	if status == models.StatusResolved || status == models.StatusClosed {
		return "Closed"
	}

	allowance := Allowance(priority)
	elapsed := now.Sub(createdAt)
	if elapsed > allowance {
		return "Overdue"
	}

	remaining := allowance - elapsed
	remainingHours := int(remaining.Hours())
	if remainingHours/24 <= 2 {
		return fmt.Sprintf("%dh left", remainingHours)
	}
	return fmt.Sprintf("%dd left", remainingHours/24)
}
