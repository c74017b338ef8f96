package models

import (
	"errors"
	"time"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "pending"
	BookingStatusConfirmed   BookingStatus = "confirmed"
	BookingStatusCancelled   BookingStatus = "cancelled"
	BookingStatusCompleted   BookingStatus = "completed"
	BookingStatusRefunded    BookingStatus = "refunded"
	BookingStatusExpired     BookingStatus = "expired"
	BookingStatusRescheduled BookingStatus = "rescheduled"
)

// bookingTransitions is the single definition of the allowed status graph.
// Every write path (HTTP handler, sweep, webhook) goes through it.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusExpired},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusRescheduled, BookingStatusExpired},
	BookingStatusCancelled: {BookingStatusRefunded},
	BookingStatusCompleted: {BookingStatusRefunded},
}

// CanTransition reports whether from -> to is in the allowed transition table
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransitionError if from -> to is not
// allowed. Callers must not apply side effects on error.
func ValidateTransition(from, to BookingStatus) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// ReleasesCapacity reports whether entering the status returns the booking's
// passenger and vehicle counts to the capacity ledger.
func (s BookingStatus) ReleasesCapacity() bool {
	return s == BookingStatusCancelled || s == BookingStatusExpired || s == BookingStatusRescheduled
}

// IsTerminal reports whether no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Booking represents one customer reservation for a sailing date
type Booking struct {
	ID                 string        `json:"id" db:"id"`
	BookingCode        string        `json:"booking_code" db:"booking_code"`
	UserID             string        `json:"user_id" db:"user_id"`
	ScheduleID         string        `json:"schedule_id" db:"schedule_id"`
	DepartureDate      time.Time     `json:"departure_date" db:"departure_date"`
	PassengerCount     int           `json:"passenger_count" db:"passenger_count"`
	VehicleCount       int           `json:"vehicle_count" db:"vehicle_count"`
	MotorcycleCount    int           `json:"motorcycle_count" db:"motorcycle_count"`
	CarCount           int           `json:"car_count" db:"car_count"`
	BusCount           int           `json:"bus_count" db:"bus_count"`
	TruckCount         int           `json:"truck_count" db:"truck_count"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	Status             BookingStatus `json:"status" db:"status"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	RescheduledFromID  *string       `json:"rescheduled_from_id,omitempty" db:"rescheduled_from_id"`
	RescheduledToID    *string       `json:"rescheduled_to_id,omitempty" db:"rescheduled_to_id"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// VehicleCounts returns the booking's per-class vehicle counts
func (b *Booking) VehicleCounts() VehicleCounts {
	return VehicleCounts{
		Motorcycles: b.MotorcycleCount,
		Cars:        b.CarCount,
		Buses:       b.BusCount,
		Trucks:      b.TruckCount,
	}
}

// PassengerRequest is one passenger in a booking request
type PassengerRequest struct {
	Name     string  `json:"name" binding:"required"`
	IDNumber *string `json:"id_number,omitempty"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	ScheduleID    string             `json:"schedule_id" binding:"required"`
	DepartureDate string             `json:"departure_date" binding:"required"` // "2006-01-02"
	Passengers    []PassengerRequest `json:"passengers" binding:"required"`
	Vehicles      []VehicleRequest   `json:"vehicles,omitempty"`
	PaymentMethod PaymentMethod      `json:"payment_method" binding:"required"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if len(r.Passengers) == 0 {
		return errors.New("at least one passenger is required")
	}
	if len(r.Passengers) > 20 {
		return errors.New("maximum 20 passengers per booking")
	}
	if len(r.Vehicles) > 5 {
		return errors.New("maximum 5 vehicles per booking")
	}
	if !r.PaymentMethod.IsValid() {
		return errors.New("unknown payment method: " + string(r.PaymentMethod))
	}
	return nil
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// RescheduleBookingRequest moves a confirmed booking to a new sailing
type RescheduleBookingRequest struct {
	ScheduleID    string `json:"schedule_id" binding:"required"`
	DepartureDate string `json:"departure_date" binding:"required"`
}
