package services

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// CapacityLedger enforces non-negative, non-overselling updates to the
// per-sailing capacity counters. All mutations run inside the caller's
// transaction; the underlying row is locked for its duration, so concurrent
// reservations against the same sailing serialize on the row.
type CapacityLedger struct {
	scheduleDateRepo *database.ScheduleDateRepository
	logger           *logrus.Logger
}

// NewCapacityLedger creates a new CapacityLedger
func NewCapacityLedger(scheduleDateRepo *database.ScheduleDateRepository, logger *logrus.Logger) *CapacityLedger {
	return &CapacityLedger{
		scheduleDateRepo: scheduleDateRepo,
		logger:           logger,
	}
}

// Reserve checks the requested passenger and per-class vehicle deltas against
// ferry capacity and commits all counters together, or none. A sailing in any
// status other than available rejects the reserve outright. The sailing row
// is created lazily with zero counters on first use.
func (l *CapacityLedger) Reserve(tx *sqlx.Tx, scheduleID string, date time.Time, capacity models.FerryCapacity, passengers int, vehicles models.VehicleCounts) (*models.ScheduleDate, error) {
	sd, err := l.scheduleDateRepo.GetOrCreateForUpdate(tx, scheduleID, date)
	if err != nil {
		return nil, err
	}

	if sd.Status != models.ScheduleDateStatusAvailable {
		reason := ""
		if sd.StatusReason != nil {
			reason = *sd.StatusReason
		}
		return nil, &models.ScheduleUnavailableError{Status: string(sd.Status), Reason: reason}
	}

	// Every class is checked before any counter moves.
	checks := []struct {
		class    string
		current  int
		delta    int
		capacity int
	}{
		{"passenger", sd.PassengerCount, passengers, capacity.Passenger},
		{"motorcycle", sd.MotorcycleCount, vehicles.Motorcycles, capacity.Motorcycle},
		{"car", sd.CarCount, vehicles.Cars, capacity.Car},
		{"bus", sd.BusCount, vehicles.Buses, capacity.Bus},
		{"truck", sd.TruckCount, vehicles.Trucks, capacity.Truck},
	}
	for _, c := range checks {
		if c.current+c.delta > c.capacity {
			return nil, &models.InsufficientCapacityError{
				Class:     c.class,
				Requested: c.delta,
				Available: c.capacity - c.current,
			}
		}
	}

	sd.PassengerCount += passengers
	sd.MotorcycleCount += vehicles.Motorcycles
	sd.CarCount += vehicles.Cars
	sd.BusCount += vehicles.Buses
	sd.TruckCount += vehicles.Trucks

	status := models.ScheduleDateStatusAvailable
	if sd.IsFull(capacity) {
		status = models.ScheduleDateStatusFull
	}
	sd.Status = status

	if err := l.scheduleDateRepo.AddCounts(tx, sd.ID, passengers, vehicles, status); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"date":        date.Format("2006-01-02"),
		"passengers":  passengers,
		"vehicles":    vehicles,
		"status":      status,
	}).Debug("Capacity reserved")

	return sd, nil
}

// Release returns a booking's counts to the sailing. Counters are clamped at
// zero. A full sailing regaining room flips back to available; other statuses
// are left untouched.
func (l *CapacityLedger) Release(tx *sqlx.Tx, scheduleID string, date time.Time, passengers int, vehicles models.VehicleCounts) error {
	sd, err := l.scheduleDateRepo.GetOrCreateForUpdate(tx, scheduleID, date)
	if err != nil {
		return err
	}

	status := sd.Status
	if status == models.ScheduleDateStatusFull {
		status = models.ScheduleDateStatusAvailable
	}

	if err := l.scheduleDateRepo.SubtractCounts(tx, sd.ID, passengers, vehicles, status); err != nil {
		return err
	}

	l.logger.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"date":        date.Format("2006-01-02"),
		"passengers":  passengers,
		"vehicles":    vehicles,
	}).Debug("Capacity released")

	return nil
}
