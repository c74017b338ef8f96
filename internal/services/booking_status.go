package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// BookingStatusService applies booking status transitions. It is the only
// write path for booking status: handlers, sweeps and webhook processing all
// go through Transition, so the transition table is enforced in one place.
type BookingStatusService struct {
	db          database.DB
	bookingRepo *database.BookingRepository
	ticketRepo  *database.TicketRepository
	logRepo     *database.BookingLogRepository
	ledger      *CapacityLedger
	sink        notify.Sink
	logger      *logrus.Logger
}

// NewBookingStatusService creates a new BookingStatusService
func NewBookingStatusService(
	db database.DB,
	bookingRepo *database.BookingRepository,
	ticketRepo *database.TicketRepository,
	logRepo *database.BookingLogRepository,
	ledger *CapacityLedger,
	sink notify.Sink,
	logger *logrus.Logger,
) *BookingStatusService {
	return &BookingStatusService{
		db:          db,
		bookingRepo: bookingRepo,
		ticketRepo:  ticketRepo,
		logRepo:     logRepo,
		ledger:      ledger,
		sink:        sink,
		logger:      logger,
	}
}

// Transition moves a booking to a new status in its own transaction and
// emits the matching notification event after commit.
func (s *BookingStatusService) Transition(bookingID string, to models.BookingStatus, actor models.ActorType, actorID, notes *string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking: %w", models.ErrNotFound)
	}

	if err := models.ValidateTransition(booking.Status, to); err != nil {
		return nil, err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.TransitionTx(tx, booking, to, actor, actorID, notes); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	s.notifyTransition(booking, to)

	return booking, nil
}

// TransitionTx applies a transition inside the caller's transaction: the
// conditional status update, the ticket cascade, the capacity release for
// source-side terminations, and the audit log entry. The conditional update
// matching zero rows means another writer moved the booking first.
func (s *BookingStatusService) TransitionTx(tx *sqlx.Tx, booking *models.Booking, to models.BookingStatus, actor models.ActorType, actorID, notes *string) error {
	from := booking.Status
	if err := models.ValidateTransition(from, to); err != nil {
		return err
	}

	var cancellationReason *string
	if to == models.BookingStatusCancelled {
		cancellationReason = notes
	}

	moved, err := s.bookingRepo.UpdateStatusTx(tx, booking.ID, from, to, cancellationReason)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if !moved {
		return models.ErrConcurrencyConflict
	}

	if err := s.cascadeTickets(tx, booking.ID, to); err != nil {
		return fmt.Errorf("failed to cascade ticket status: %w", err)
	}

	if to.ReleasesCapacity() {
		err := s.ledger.Release(tx, booking.ScheduleID, booking.DepartureDate, booking.PassengerCount, booking.VehicleCounts())
		if err != nil {
			return fmt.Errorf("failed to release capacity: %w", err)
		}
	}

	entry := &models.BookingLog{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		PreviousStatus: from,
		NewStatus:      to,
		ActorType:      actor,
		ActorID:        actorID,
		Notes:          notes,
	}
	if err := s.logRepo.CreateTx(tx, entry); err != nil {
		return fmt.Errorf("failed to append booking log: %w", err)
	}

	booking.Status = to
	if cancellationReason != nil {
		booking.CancellationReason = cancellationReason
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"from":         from,
		"to":           to,
		"actor":        actor,
	}).Info("Booking status transition applied")

	return nil
}

func (s *BookingStatusService) cascadeTickets(tx *sqlx.Tx, bookingID string, to models.BookingStatus) error {
	boarding := func(b models.BoardingStatus) *models.BoardingStatus { return &b }

	switch to {
	case models.BookingStatusCancelled, models.BookingStatusRescheduled:
		return s.ticketRepo.CascadeStatusTx(tx, bookingID, models.TicketStatusCancelled, boarding(models.BoardingStatusCancelled))
	case models.BookingStatusCompleted:
		return s.ticketRepo.CascadeStatusTx(tx, bookingID, models.TicketStatusUsed, nil)
	case models.BookingStatusExpired:
		return s.ticketRepo.CascadeStatusTx(tx, bookingID, models.TicketStatusExpired, boarding(models.BoardingStatusExpired))
	}
	return nil
}

func (s *BookingStatusService) notifyTransition(booking *models.Booking, to models.BookingStatus) {
	var event *notify.Event

	switch to {
	case models.BookingStatusConfirmed:
		event = &notify.Event{
			Type:     notify.EventBookingConfirmed,
			Title:    "Booking confirmed",
			Message:  fmt.Sprintf("Your booking %s is confirmed.", booking.BookingCode),
			Priority: notify.PriorityHigh,
		}
	case models.BookingStatusCancelled:
		event = &notify.Event{
			Type:     notify.EventBookingCancelled,
			Title:    "Booking cancelled",
			Message:  fmt.Sprintf("Your booking %s has been cancelled.", booking.BookingCode),
			Priority: notify.PriorityNormal,
		}
	case models.BookingStatusExpired:
		event = &notify.Event{
			Type:     notify.EventBookingExpired,
			Title:    "Booking expired",
			Message:  fmt.Sprintf("Your booking %s has expired.", booking.BookingCode),
			Priority: notify.PriorityNormal,
		}
	case models.BookingStatusRefunded:
		event = &notify.Event{
			Type:     notify.EventBookingRefunded,
			Title:    "Booking refunded",
			Message:  fmt.Sprintf("Your booking %s has been refunded.", booking.BookingCode),
			Priority: notify.PriorityNormal,
		}
	}

	if event == nil {
		return
	}

	event.UserID = booking.UserID
	event.Data = map[string]interface{}{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"status":       string(to),
	}

	if err := s.sink.Publish(*event); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to publish notification event")
	}
}
