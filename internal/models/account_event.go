package models

import "time"

// Account event types.
const (
	EventUserCreated     = "USER_CREATED"
	EventUserUpdated     = "USER_UPDATED"
	EventPasswordChanged = "PASSWORD_CHANGED"
	EventSignInFailed    = "SIGN_IN_FAILED"
)

// AccountEvent is a single audit log entry.
type AccountEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // USER_CREATED | USER_UPDATED | PASSWORD_CHANGED | SIGN_IN_FAILED
	UserID      int64     `json:"user_id,omitempty"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// IsEventType reports whether s is one of the account event type constants.
func IsEventType(s string) bool {
	switch s {
	case EventUserCreated, EventUserUpdated, EventPasswordChanged, EventSignInFailed:
		return true
	}
	return false
}
