// Package notify delivers booking lifecycle events to an external
// notification sink. The core only emits events; rendering and delivery to
// end users are owned by the sink.
package notify

// EventType classifies a notification event
type EventType string

const (
	EventBookingConfirmed EventType = "booking_confirmed"
	EventPaymentSuccess   EventType = "payment_success"
	EventPaymentExpired   EventType = "payment_expired"
	EventBookingCancelled EventType = "booking_cancelled"
	EventBookingExpired   EventType = "booking_expired"
	EventBookingRefunded  EventType = "booking_refunded"
	EventScheduleChanged  EventType = "schedule_changed"
	EventBoardingReminder EventType = "boarding_reminder"
)

// Priority indicates delivery urgency to the sink
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Event is the payload handed to the sink
type Event struct {
	Type     EventType              `json:"type"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Priority Priority               `json:"priority"`
	UserID   string                 `json:"user_id,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Sink delivers events to the external notification system
type Sink interface {
	Publish(event Event) error
}
