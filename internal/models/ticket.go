package models

import "time"

// TicketStatus represents the validity of a per-passenger ticket
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusExpired   TicketStatus = "expired"
)

// BoardingStatus represents the check-in/boarding lifecycle, distinct from
// booking status.
type BoardingStatus string

const (
	BoardingStatusNotBoarded BoardingStatus = "not_boarded"
	BoardingStatusBoarded    BoardingStatus = "boarded"
	BoardingStatusMissed     BoardingStatus = "missed"
	BoardingStatusExpired    BoardingStatus = "expired"
	BoardingStatusCancelled  BoardingStatus = "cancelled"
)

// Ticket is the per-passenger artifact owned by a booking. Its statuses are
// kept consistent with the parent booking by the reconciliation sweeps.
type Ticket struct {
	ID             string         `json:"id" db:"id"`
	BookingID      string         `json:"booking_id" db:"booking_id"`
	TicketCode     string         `json:"ticket_code" db:"ticket_code"`
	PassengerName  string         `json:"passenger_name" db:"passenger_name"`
	PassengerID    *string        `json:"passenger_id_number,omitempty" db:"passenger_id_number"`
	Status         TicketStatus   `json:"status" db:"status"`
	BoardingStatus BoardingStatus `json:"boarding_status" db:"boarding_status"`
	CheckedIn      bool           `json:"checked_in" db:"checked_in"`
	CheckedInAt    *time.Time     `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
