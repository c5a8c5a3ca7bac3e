package models

import "time"

// LifecycleStep enum
type LifecycleStep string

const (
	StepReported        LifecycleStep = "REPORTED"
	StepAcknowledged    LifecycleStep = "ACKNOWLEDGED"
	StepAssigned        LifecycleStep = "ASSIGNED"
	StepResolved        LifecycleStep = "RESOLVED"
	StepCitizenVerified LifecycleStep = "CITIZEN_VERIFIED"
)

// StepStatus enum
type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepCurrent   StepStatus = "CURRENT"
	StepCompleted StepStatus = "COMPLETED"
)

// LifecycleRecord is one append-only entry in an issue's progression.
// Records are never reordered or deleted; the only permitted mutation
// after creation is flipping CURRENT to COMPLETED when the step
// concludes.
type LifecycleRecord struct {
	Step      LifecycleStep `bson:"step" json:"step"`
	Status    StepStatus    `bson:"status" json:"status"`
	Notes     *string       `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}
