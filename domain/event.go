package domain

import "time"

// EventType tags a user event envelope. The set is closed; consumers must
// discard anything else without failing.
type EventType string

const (
	EventUserCreated  EventType = "created"
	EventUserUpdated  EventType = "updated"
	EventUserVerified EventType = "verified"
)

// UserEventsExchange is the durable topic exchange user events travel on.
// Routing keys are "user.<event_type>".
const UserEventsExchange = "user_events"

// RoutingKey returns the topic routing key for the event type.
func (t EventType) RoutingKey() string {
	return "user." + string(t)
}

// UserSnapshot is the fully materialized identity state carried in an
// envelope. It is a copy taken at mutation time, not a delta.
type UserSnapshot struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

// UserEvent is the envelope published once per identity mutation. The
// broker gives no ordering guarantee: envelopes for the same user may
// arrive out of publication order, or more than once.
type UserEvent struct {
	EventType EventType    `json:"event_type"`
	Data      UserSnapshot `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
	Service   string       `json:"service"`
}

// Snapshot builds the event payload for a user.
func Snapshot(u *User) UserSnapshot {
	return UserSnapshot{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}
