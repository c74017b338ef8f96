package models

import "time"

// ScheduleDateStatus represents the availability of one sailing instance
type ScheduleDateStatus string

const (
	ScheduleDateStatusAvailable    ScheduleDateStatus = "available"
	ScheduleDateStatusUnavailable  ScheduleDateStatus = "unavailable"
	ScheduleDateStatusFull         ScheduleDateStatus = "full"
	ScheduleDateStatusCancelled    ScheduleDateStatus = "cancelled"
	ScheduleDateStatusDeparted     ScheduleDateStatus = "departed"
	ScheduleDateStatusWeatherIssue ScheduleDateStatus = "weather_issue"
)

// ScheduleDate is one concrete sailing instance (schedule + calendar date)
// carrying live capacity counters. Counters are mutated only through the
// capacity ledger's reserve/release operations.
type ScheduleDate struct {
	ID                 string             `json:"id" db:"id"`
	ScheduleID         string             `json:"schedule_id" db:"schedule_id"`
	Date               time.Time          `json:"date" db:"date"`
	PassengerCount     int                `json:"passenger_count" db:"passenger_count"`
	MotorcycleCount    int                `json:"motorcycle_count" db:"motorcycle_count"`
	CarCount           int                `json:"car_count" db:"car_count"`
	BusCount           int                `json:"bus_count" db:"bus_count"`
	TruckCount         int                `json:"truck_count" db:"truck_count"`
	Status             ScheduleDateStatus `json:"status" db:"status"`
	StatusReason       *string            `json:"status_reason,omitempty" db:"status_reason"`
	StatusExpiry       *time.Time         `json:"status_expiry,omitempty" db:"status_expiry"`
	ModifiedBySchedule bool               `json:"modified_by_schedule" db:"modified_by_schedule"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// RemainingCapacity returns per-class free slots against ferry capacity
func (d *ScheduleDate) RemainingCapacity(capacity FerryCapacity) FerryCapacity {
	return FerryCapacity{
		Passenger:  maxInt(capacity.Passenger-d.PassengerCount, 0),
		Motorcycle: maxInt(capacity.Motorcycle-d.MotorcycleCount, 0),
		Car:        maxInt(capacity.Car-d.CarCount, 0),
		Bus:        maxInt(capacity.Bus-d.BusCount, 0),
		Truck:      maxInt(capacity.Truck-d.TruckCount, 0),
	}
}

// IsFull reports whether every class is at or over ferry capacity
func (d *ScheduleDate) IsFull(capacity FerryCapacity) bool {
	return d.PassengerCount >= capacity.Passenger &&
		d.MotorcycleCount >= capacity.Motorcycle &&
		d.CarCount >= capacity.Car &&
		d.BusCount >= capacity.Bus &&
		d.TruckCount >= capacity.Truck
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
