// Package lifecycle is the state machine governing an issue's
// progression. Steps are tracked independently on an append-only trail
// (REPORTED, ACKNOWLEDGED, ASSIGNED, RESOLVED, CITIZEN_VERIFIED), while
// the issue's coarser status field (PENDING, IN_PROGRESS, RESOLVED,
// CLOSED) is kept consistent with the trail. All functions operate on
// an issue the caller read fresh inside the repository's atomic
// read-modify-write; they never touch storage themselves.
package lifecycle

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicdesk-be/errs"
	"civicdesk-be/models"
)

// statusRank orders the coarse statuses. Transitions are monotonic:
// moving to a lower rank is rejected.
var statusRank = map[models.IssueStatus]int{
	models.StatusPending:    0,
	models.StatusInProgress: 1,
	models.StatusResolved:   2,
	models.StatusClosed:     3,
}

// NewTrail builds the trail for a freshly reported issue: REPORTED is
// already COMPLETED and ACKNOWLEDGED becomes the CURRENT step.
func NewTrail(now time.Time) []models.LifecycleRecord {
	return []models.LifecycleRecord{
		{Step: models.StepReported, Status: models.StepCompleted, CreatedAt: now},
		{Step: models.StepAcknowledged, Status: models.StepCurrent, CreatedAt: now},
	}
}

// ApplyStatusChange moves the issue to the next status and appends the
// lifecycle records the transition implies.
//
// A same-status update is a no-op: in particular a second RESOLVED
// submission (including the loser of a concurrent race) produces no
// duplicate RESOLVED record and no error. CLOSED is reachable from
// RESOLVED only, so a CLOSED issue always carries a full resolution
// trail. IN_PROGRESS requires an assignee on the issue.
func ApplyStatusChange(issue *models.Issue, next models.IssueStatus, now time.Time) error {
	if !models.IsValidStatus(next) {
		return errs.Validationf("status", "unknown status %q", string(next))
	}
	if next == issue.Status {
		return nil
	}
	if statusRank[next] < statusRank[issue.Status] {
		return &errs.InvalidTransitionError{From: string(issue.Status), To: string(next)}
	}

	switch next {
	case models.StatusInProgress:
		if issue.AssignedTo == nil {
			return errs.Validationf("assignedTo", "an issue must be assigned before moving to IN_PROGRESS")
		}
	case models.StatusResolved:
		if !issue.HasCompletedStep(models.StepResolved) {
			completeCurrent(issue, models.StepAcknowledged)
			issue.Lifecycle = append(issue.Lifecycle, models.LifecycleRecord{
				Step:      models.StepResolved,
				Status:    models.StepCompleted,
				CreatedAt: now,
			})
		}
	case models.StatusClosed:
		if issue.Status != models.StatusResolved {
			return &errs.InvalidTransitionError{From: string(issue.Status), To: string(next)}
		}
	}

	issue.Status = next
	issue.UpdatedAt = now
	return nil
}

// ApplyAssignment sets the assignee and, when the assignee actually
// changes to a non-nil user, appends an ASSIGNED record. Assignment by
// itself never changes the coarse status; callers pair it with a status
// update when they want IN_PROGRESS. Returns whether anything changed.
func ApplyAssignment(issue *models.Issue, assignee *primitive.ObjectID, now time.Time) bool {
	same := (issue.AssignedTo == nil && assignee == nil) ||
		(issue.AssignedTo != nil && assignee != nil && *issue.AssignedTo == *assignee)
	if same {
		return false
	}

	issue.AssignedTo = assignee
	if assignee != nil {
		completeCurrent(issue, models.StepAcknowledged)
		issue.Lifecycle = append(issue.Lifecycle, models.LifecycleRecord{
			Step:      models.StepAssigned,
			Status:    models.StepCompleted,
			CreatedAt: now,
		})
	}
	issue.UpdatedAt = now
	return true
}

// ApplyVerification appends the terminal CITIZEN_VERIFIED acknowledgment.
// It requires RESOLVED to already be COMPLETED and is idempotent on
// repeat.
func ApplyVerification(issue *models.Issue, notes *string, now time.Time) error {
	if issue.HasCompletedStep(models.StepCitizenVerified) {
		return nil
	}
	if !issue.HasCompletedStep(models.StepResolved) {
		return &errs.InvalidTransitionError{From: string(issue.Status), To: string(models.StepCitizenVerified)}
	}

	issue.Lifecycle = append(issue.Lifecycle, models.LifecycleRecord{
		Step:      models.StepCitizenVerified,
		Status:    models.StepCompleted,
		Notes:     notes,
		CreatedAt: now,
	})
	issue.UpdatedAt = now
	return nil
}

// completeCurrent flips the step's CURRENT marker to COMPLETED. This is
// the only mutation the trail permits; completed records are never
// reverted.
func completeCurrent(issue *models.Issue, step models.LifecycleStep) {
	for idx := range issue.Lifecycle {
		rec := &issue.Lifecycle[idx]
		if rec.Step == step && rec.Status == models.StepCurrent {
			rec.Status = models.StepCompleted
		}
	}
}
