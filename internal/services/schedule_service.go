package services

import (
	"fmt"
	"time"

	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// ScheduleService maintains recurring schedules and their per-date sailing
// instances: status changes with cascades, date generation, and the
// nearest-available-date search used when a requested sailing is full.
type ScheduleService struct {
	scheduleRepo     *database.ScheduleRepository
	scheduleDateRepo *database.ScheduleDateRepository
	ferryRepo        *database.FerryRepository
	sink             notify.Sink
	clock            Clock
	searchWindowDays int
	logger           *logrus.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	scheduleRepo *database.ScheduleRepository,
	scheduleDateRepo *database.ScheduleDateRepository,
	ferryRepo *database.FerryRepository,
	sink notify.Sink,
	clock Clock,
	cfg *config.BookingConfig,
	logger *logrus.Logger,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo:     scheduleRepo,
		scheduleDateRepo: scheduleDateRepo,
		ferryRepo:        ferryRepo,
		sink:             sink,
		clock:            clock,
		searchWindowDays: cfg.SearchWindowDays,
		logger:           logger,
	}
}

// UpdateScheduleStatus changes a schedule's status and cascades the change
// onto future sailing dates. Dates an operator has overridden by hand are
// left alone; only schedule-controlled rows follow the cascade.
func (s *ScheduleService) UpdateScheduleStatus(scheduleID string, status models.ScheduleStatus, reason *string, expiry *time.Time) error {
	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return fmt.Errorf("schedule: %w", models.ErrNotFound)
	}

	if err := s.scheduleRepo.UpdateStatus(scheduleID, status, reason, expiry); err != nil {
		return fmt.Errorf("failed to update schedule status: %w", err)
	}

	dateStatus, cascades := cascadeDateStatus(status)
	if cascades {
		affected, err := s.scheduleDateRepo.CascadeStatus(scheduleID, s.clock.Now(), dateStatus, reason)
		if err != nil {
			return fmt.Errorf("failed to cascade schedule status: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"schedule_id": scheduleID,
			"status":      status,
			"date_status": dateStatus,
			"affected":    affected,
		}).Info("Schedule status cascaded to sailing dates")
	}

	s.publishScheduleChange(schedule, status, reason)
	return nil
}

// cascadeDateStatus maps a schedule-level status to the sailing-date status
// the cascade writes. Reactivating a schedule reopens its dates.
func cascadeDateStatus(status models.ScheduleStatus) (models.ScheduleDateStatus, bool) {
	switch status {
	case models.ScheduleStatusCancelled:
		return models.ScheduleDateStatusCancelled, true
	case models.ScheduleStatusDelayed:
		return models.ScheduleDateStatusUnavailable, true
	case models.ScheduleStatusActive:
		return models.ScheduleDateStatusAvailable, true
	}
	return "", false
}

// SetSailingStatus applies a manual operator override to one sailing date.
// The row is flagged so later schedule-level cascades skip it.
func (s *ScheduleService) SetSailingStatus(scheduleDateID string, status models.ScheduleDateStatus, reason *string, expiry *time.Time) error {
	sd, err := s.scheduleDateRepo.GetByID(scheduleDateID)
	if err != nil {
		return fmt.Errorf("failed to get sailing date: %w", err)
	}
	if sd == nil {
		return fmt.Errorf("sailing date: %w", models.ErrNotFound)
	}

	if err := s.scheduleDateRepo.SetStatusManual(scheduleDateID, status, reason, expiry); err != nil {
		return fmt.Errorf("failed to set sailing status: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_date_id": scheduleDateID,
		"schedule_id":      sd.ScheduleID,
		"date":             sd.Date.Format("2006-01-02"),
		"status":           status,
	}).Info("Sailing status overridden manually")
	return nil
}

// GenerateDates materializes sailing-date rows for a schedule over a date
// range, honoring the schedule's operating days. Existing rows are left
// untouched. Returns the number of rows created.
func (s *ScheduleService) GenerateDates(scheduleID string, from, to time.Time) (int, error) {
	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return 0, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return 0, fmt.Errorf("schedule: %w", models.ErrNotFound)
	}
	if to.Before(from) {
		return 0, fmt.Errorf("invalid date range")
	}

	created := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !schedule.OperatesOn(d) {
			continue
		}
		inserted, err := s.scheduleDateRepo.CreateIfMissing(scheduleID, d)
		if err != nil {
			return created, fmt.Errorf("failed to create sailing date %s: %w", d.Format("2006-01-02"), err)
		}
		if inserted {
			created++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"created":     created,
	}).Info("Sailing dates generated")
	return created, nil
}

// AvailableSailing is one candidate from the nearest-date search
type AvailableSailing struct {
	ScheduleID    string               `json:"schedule_id"`
	Date          time.Time            `json:"date"`
	DepartureTime string               `json:"departure_time"`
	Remaining     models.FerryCapacity `json:"remaining"`
}

// FindNearestAvailable searches the same route for the closest sailing date,
// starting from the requested date, that can fit the requested passenger and
// vehicle load. Candidates are ranked by date first; on the same date the
// sailing with the most remaining passenger capacity wins. Returns nil when
// nothing inside the search window fits.
func (s *ScheduleService) FindNearestAvailable(routeID string, fromDate time.Time, passengers int, vehicles models.VehicleCounts) (*AvailableSailing, error) {
	schedules, err := s.scheduleRepo.GetActiveByRoute(routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get route schedules: %w", err)
	}

	for offset := 0; offset <= s.searchWindowDays; offset++ {
		date := fromDate.AddDate(0, 0, offset)
		var best *AvailableSailing

		for i := range schedules {
			schedule := &schedules[i]
			if !schedule.OperatesOn(date) {
				continue
			}

			capacity, err := s.ferryRepo.GetCapacityByScheduleID(schedule.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get ferry capacity: %w", err)
			}
			if capacity == nil {
				// Schedule without an assigned ferry cannot be offered.
				continue
			}

			remaining, ok, err := s.remainingFor(schedule.ID, date, *capacity)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			if remaining.Passenger < passengers ||
				remaining.Motorcycle < vehicles.Motorcycles ||
				remaining.Car < vehicles.Cars ||
				remaining.Bus < vehicles.Buses ||
				remaining.Truck < vehicles.Trucks {
				continue
			}

			if best == nil || remaining.Passenger > best.Remaining.Passenger {
				best = &AvailableSailing{
					ScheduleID:    schedule.ID,
					Date:          date,
					DepartureTime: schedule.DepartureTime,
					Remaining:     *remaining,
				}
			}
		}

		if best != nil {
			return best, nil
		}
	}

	return nil, nil
}

// remainingFor computes the free capacity for a sailing. A sailing with no
// row yet is fully free; a row in any non-available status is skipped.
func (s *ScheduleService) remainingFor(scheduleID string, date time.Time, capacity models.FerryCapacity) (*models.FerryCapacity, bool, error) {
	sd, err := s.scheduleDateRepo.GetByScheduleAndDate(scheduleID, date)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get sailing date: %w", err)
	}
	if sd == nil {
		return &capacity, true, nil
	}
	if sd.Status != models.ScheduleDateStatusAvailable {
		return nil, false, nil
	}
	remaining := sd.RemainingCapacity(capacity)
	return &remaining, true, nil
}

func (s *ScheduleService) publishScheduleChange(schedule *models.Schedule, status models.ScheduleStatus, reason *string) {
	message := fmt.Sprintf("Schedule departing %s is now %s.", schedule.DepartureTime, status)
	if reason != nil {
		message = fmt.Sprintf("%s Reason: %s", message, *reason)
	}
	err := s.sink.Publish(notify.Event{
		Type:     notify.EventScheduleChanged,
		Title:    "Schedule Update",
		Message:  message,
		Priority: notify.PriorityHigh,
		Data: map[string]interface{}{
			"schedule_id": schedule.ID,
			"status":      status,
		},
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to publish schedule change event")
	}
}
