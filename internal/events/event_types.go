package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "auth.user_registered"
	EventLoginSucceeded EventType = "auth.login_succeeded"
	EventLoginFailed    EventType = "auth.login_failed"
	EventTokenRejected  EventType = "auth.token_rejected"
)

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, username string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// TokenRejectedPayload payload. Reason is one of the middleware outcomes and
// never the failing decode step.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
}
