package models

import "time"

// ActorType identifies who drove a booking status transition
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system" // sweeps, webhook processing
)

// BookingLog is an immutable audit entry appended on every accepted status
// transition. Rows are never updated or deleted.
type BookingLog struct {
	ID             string        `json:"id" db:"id"`
	BookingID      string        `json:"booking_id" db:"booking_id"`
	PreviousStatus BookingStatus `json:"previous_status" db:"previous_status"`
	NewStatus      BookingStatus `json:"new_status" db:"new_status"`
	ActorType      ActorType     `json:"actor_type" db:"actor_type"`
	ActorID        *string       `json:"actor_id,omitempty" db:"actor_id"`
	Notes          *string       `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// BookingLogStatusNew is the pseudo previous-status recorded when a booking
// is first created.
const BookingLogStatusNew BookingStatus = "new"
