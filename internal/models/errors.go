package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("record not found")

// ErrScheduleNotOperating is returned when a booking targets a date outside
// the schedule's operating days.
var ErrScheduleNotOperating = errors.New("schedule does not operate on the requested date")

// ErrPaymentVerificationFailed is returned when a gateway notification fails
// signature verification. The notification must be discarded, never applied.
var ErrPaymentVerificationFailed = errors.New("payment notification signature verification failed")

// ErrConcurrencyConflict is returned when a conditional status update matched
// zero rows because another writer got there first. Callers may retry the
// whole operation.
var ErrConcurrencyConflict = errors.New("concurrent update conflict, retry the operation")

// ScheduleUnavailableError is returned when the target sailing date is not
// open for booking (cancelled, departed, weather hold, etc).
type ScheduleUnavailableError struct {
	Status string
	Reason string
}

func (e *ScheduleUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schedule date is not available (status: %s): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("schedule date is not available (status: %s)", e.Status)
}

// InsufficientCapacityError reports the first capacity class that would be
// oversold by a reservation. No counters are changed when this is returned.
type InsufficientCapacityError struct {
	Class     string // "passenger", "motorcycle", "car", "bus", "truck"
	Requested int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("%s capacity exceeded: requested %d, available %d", e.Class, e.Requested, e.Available)
}

// InvalidTransitionError is returned when a booking status change is not in
// the allowed transition table.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking status transition %s -> %s", e.From, e.To)
}

// GatewayUnavailableError wraps a transient payment gateway failure. Sweeps
// log these and retry on the next cycle.
type GatewayUnavailableError struct {
	Err error
}

func (e *GatewayUnavailableError) Error() string {
	return fmt.Sprintf("payment gateway unavailable: %v", e.Err)
}

func (e *GatewayUnavailableError) Unwrap() error {
	return e.Err
}
