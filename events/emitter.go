// Package events publishes issue mutations to the realtime/notification
// layer. Publishing is fire-and-forget: no acknowledgment is expected
// and a failed publish never fails the mutation that triggered it.
package events

import (
	"context"
	"log"
	"time"
)

// Event types published by the issue service.
const (
	IssueCreated = "issue-created"
	IssueUpdated = "issue-updated"
	IssueDeleted = "issue-deleted"
	CommentAdded = "comment-added"
)

// Event is one published mutation notification.
type Event struct {
	Type    string      `json:"type"`
	IssueID string      `json:"issueId"`
	ActorID string      `json:"actorId,omitempty"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// Emitter is the notification collaborator.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

type logEmitter struct{}

// NewLogEmitter returns an emitter that only logs, used when no Redis
// is configured and in tests.
func NewLogEmitter() Emitter { return logEmitter{} }

func (logEmitter) Emit(_ context.Context, event Event) {
	log.Printf("event %s issue=%s actor=%s", event.Type, event.IssueID, event.ActorID)
}
