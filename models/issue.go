package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssuePriority enum
type IssuePriority string

const (
	PriorityLow      IssuePriority = "LOW"
	PriorityMedium   IssuePriority = "MEDIUM"
	PriorityHigh     IssuePriority = "HIGH"
	PriorityCritical IssuePriority = "CRITICAL"
)

// IssueStatus enum
type IssueStatus string

const (
	StatusPending    IssueStatus = "PENDING"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusResolved   IssueStatus = "RESOLVED"
	StatusClosed     IssueStatus = "CLOSED"
)

// Issue represents a civic issue reported by a citizen and tracked
// through its lifecycle.
type Issue struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Department  string              `bson:"department" json:"department"`
	Latitude    float64             `bson:"latitude" json:"latitude"`
	Longitude   float64             `bson:"longitude" json:"longitude"`
	Address     *string             `bson:"address,omitempty" json:"address,omitempty"`
	Priority    IssuePriority       `bson:"priority" json:"priority"`
	Status      IssueStatus         `bson:"status" json:"status"`
	ReportedBy  *primitive.ObjectID `bson:"reportedBy,omitempty" json:"reportedBy,omitempty"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Lifecycle   []LifecycleRecord   `bson:"lifecycle" json:"lifecycle"`
	Attachments []string            `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Version     int64               `bson:"version" json:"-"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsValidPriority reports whether p is one of the defined priorities.
func IsValidPriority(p IssuePriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// IsValidStatus reports whether s is one of the defined statuses.
func IsValidStatus(s IssueStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// StepState returns the latest marker recorded for the given step, or
// empty if the step never appeared in the trail.
func (i *Issue) StepState(step LifecycleStep) StepStatus {
	var state StepStatus
	for _, rec := range i.Lifecycle {
		if rec.Step == step {
			state = rec.Status
		}
	}
	return state
}

// HasCompletedStep reports whether the trail carries a COMPLETED record
// for the given step.
func (i *Issue) HasCompletedStep(step LifecycleStep) bool {
	return i.StepState(step) == StepCompleted
}
