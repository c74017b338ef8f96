package models

import (
	"strconv"
	"strings"
	"time"
)

// ScheduleStatus represents the status of a recurring sailing schedule
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
	ScheduleStatusDelayed   ScheduleStatus = "delayed"
	ScheduleStatusFull      ScheduleStatus = "full"
)

// Schedule represents a recurring sailing: route + ferry + time-of-day +
// operating days of week.
type Schedule struct {
	ID            string         `json:"id" db:"id"`
	RouteID       string         `json:"route_id" db:"route_id"`
	FerryID       string         `json:"ferry_id" db:"ferry_id"`
	DepartureTime string         `json:"departure_time" db:"departure_time"` // "15:04"
	ArrivalTime   string         `json:"arrival_time" db:"arrival_time"`     // "15:04"
	DaysOfWeek    string         `json:"days_of_week" db:"days_of_week"`     // comma list, 0=Sunday .. 6=Saturday
	Status        ScheduleStatus `json:"status" db:"status"`
	StatusReason  *string        `json:"status_reason,omitempty" db:"status_reason"`
	StatusExpiry  *time.Time     `json:"status_expiry,omitempty" db:"status_expiry"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// OperatesOn reports whether the schedule runs on the given date's weekday
func (s *Schedule) OperatesOn(date time.Time) bool {
	weekday := int(date.Weekday())
	for _, part := range strings.Split(s.DaysOfWeek, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if day == weekday {
			return true
		}
	}
	return false
}

// DepartureAt combines the sailing date with the schedule's departure
// time-of-day. Falls back to midnight if the stored time is malformed.
func (s *Schedule) DepartureAt(date time.Time) time.Time {
	departure := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if t, err := time.Parse("15:04", s.DepartureTime); err == nil {
		departure = time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
	}
	return departure
}

// UpdateScheduleStatusRequest represents an operator status change
type UpdateScheduleStatusRequest struct {
	Status       ScheduleStatus `json:"status" binding:"required"`
	StatusReason *string        `json:"status_reason,omitempty"`
	StatusExpiry *time.Time     `json:"status_expiry,omitempty"`
}

// GenerateDatesRequest asks for sailing-date rows over a range
type GenerateDatesRequest struct {
	StartDate string `json:"start_date" binding:"required"` // "2006-01-02"
	EndDate   string `json:"end_date" binding:"required"`
}
