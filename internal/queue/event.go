// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import "time"

// AuditQueueName is the default durable queue carrying account events.
const AuditQueueName = "agro.audit"

// Account event types.
const (
	EventUserRegistered      = "user.registered"
	EventUserDeactivated     = "user.deactivated"
	EventUserPasswordReset   = "user.password_reset"
	EventUserPasswordChanged = "user.password_changed"
)

// AuditEvent is published whenever an account changes in a way an operator
// may need to trace later.  ActorID is the authenticated user that caused
// the change; it equals UserID for self-service operations.
type AuditEvent struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	ActorID    uint64    `json:"actor_id"`
	Subject    string    `json:"subject"` // email of the affected account
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAuditEvent stamps an event with the current UTC time.
func NewAuditEvent(typ string, userID, actorID uint64, subject string) AuditEvent {
	return AuditEvent{
		Type:       typ,
		UserID:     userID,
		ActorID:    actorID,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
	}
}
