package services

import (
	"errors"
	"fmt"

	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// ReconciliationService runs the periodic sweeps that repair drift between
// wall-clock reality and stored state: unpaid bookings past their payment
// deadline, sailings that have departed, and gateway payments whose webhook
// never arrived. Every sweep is idempotent; running twice changes nothing
// the second time.
type ReconciliationService struct {
	db               database.DB
	bookingRepo      *database.BookingRepository
	ticketRepo       *database.TicketRepository
	paymentRepo      *database.PaymentRepository
	scheduleDateRepo *database.ScheduleDateRepository
	statusService    *BookingStatusService
	paymentService   *PaymentService
	midtrans         *MidtransService
	sink             notify.Sink
	clock            Clock
	batchSize        int
	logger           *logrus.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	db database.DB,
	bookingRepo *database.BookingRepository,
	ticketRepo *database.TicketRepository,
	paymentRepo *database.PaymentRepository,
	scheduleDateRepo *database.ScheduleDateRepository,
	statusService *BookingStatusService,
	paymentService *PaymentService,
	midtrans *MidtransService,
	sink notify.Sink,
	clock Clock,
	cfg *config.SweepConfig,
	logger *logrus.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		db:               db,
		bookingRepo:      bookingRepo,
		ticketRepo:       ticketRepo,
		paymentRepo:      paymentRepo,
		scheduleDateRepo: scheduleDateRepo,
		statusService:    statusService,
		paymentService:   paymentService,
		midtrans:         midtrans,
		sink:             sink,
		clock:            clock,
		batchSize:        cfg.BatchSize,
		logger:           logger,
	}
}

// SweepReport summarizes one reconciliation run
type SweepReport struct {
	PaymentsExpired   int `json:"payments_expired"`
	BookingsCompleted int `json:"bookings_completed"`
	BookingsExpired   int `json:"bookings_expired"`
	SailingsDeparted  int `json:"sailings_departed"`
	PaymentsPolled    int `json:"payments_polled"`
	Errors            int `json:"errors"`
}

// RunAll executes every sweep in order, continuing past individual failures
func (s *ReconciliationService) RunAll() *SweepReport {
	report := &SweepReport{}

	expired, errs := s.ExpirePendingPayments()
	report.PaymentsExpired = expired
	report.Errors += errs

	completed, lapsed, errs := s.SettlePastDepartures()
	report.BookingsCompleted = completed
	report.BookingsExpired += lapsed
	report.Errors += errs

	departed, err := s.MarkDepartedSailings()
	if err != nil {
		s.logger.WithError(err).Error("Failed to mark departed sailings")
		report.Errors++
	}
	report.SailingsDeparted = departed

	polled, errs := s.PollPendingPayments()
	report.PaymentsPolled = polled
	report.Errors += errs

	s.logger.WithFields(logrus.Fields{
		"payments_expired":   report.PaymentsExpired,
		"bookings_completed": report.BookingsCompleted,
		"bookings_expired":   report.BookingsExpired,
		"sailings_departed":  report.SailingsDeparted,
		"payments_polled":    report.PaymentsPolled,
		"errors":             report.Errors,
	}).Info("Reconciliation sweep finished")

	return report
}

// ExpirePendingPayments expires gateway payments past their deadline and
// moves their bookings to expired, releasing the held capacity. Returns the
// number of payments expired and the number of per-record errors.
func (s *ReconciliationService) ExpirePendingPayments() (int, int) {
	now := s.clock.Now()
	payments, err := s.paymentRepo.GetExpiredPending(now, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list expired pending payments")
		return 0, 1
	}

	expired := 0
	errCount := 0
	for _, payment := range payments {
		done, err := s.expirePayment(&payment)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", payment.OrderID).Error("Failed to expire payment")
			errCount++
			continue
		}
		if done {
			expired++
		}
	}

	if expired > 0 {
		s.logger.WithField("count", expired).Info("Expired unpaid bookings")
	}
	return expired, errCount
}

// expirePayment reports whether the payment and its booking were actually
// expired; records another writer settled first do not count toward the sweep
// report.
func (s *ReconciliationService) expirePayment(payment *models.Payment) (bool, error) {
	marked, err := s.paymentRepo.MarkExpired(payment.ID)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment expired: %w", err)
	}
	if !marked {
		// Paid or expired between the listing and now.
		return false, nil
	}

	booking, err := s.statusService.Transition(payment.BookingID, models.BookingStatusExpired, models.ActorTypeSystem, nil, nil)
	if err != nil {
		if errors.Is(err, models.ErrConcurrencyConflict) {
			return false, nil
		}
		return false, err
	}

	s.publish(notify.EventPaymentExpired, "Booking Expired",
		fmt.Sprintf("Booking %s expired because payment was not completed in time.", booking.BookingCode),
		booking)
	return true, nil
}

// SettlePastDepartures resolves bookings whose sailing has departed:
// confirmed bookings with every passenger boarded complete, confirmed
// bookings with missed passengers expire, and pending ones expire. Returns
// completed count, expired count and per-record errors.
func (s *ReconciliationService) SettlePastDepartures() (int, int, int) {
	now := s.clock.Now()
	bookings, err := s.bookingRepo.GetPastDeparture(now, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list past-departure bookings")
		return 0, 0, 1
	}

	completed := 0
	lapsed := 0
	errCount := 0
	for _, booking := range bookings {
		switch booking.Status {
		case models.BookingStatusConfirmed:
			settled, err := s.settleDeparted(&booking)
			if err != nil {
				s.logger.WithError(err).WithField("booking_code", booking.BookingCode).Error("Failed to settle departed booking")
				errCount++
				continue
			}
			switch settled {
			case models.BookingStatusCompleted:
				completed++
			case models.BookingStatusExpired:
				lapsed++
			}
		case models.BookingStatusPending:
			_, err := s.statusService.Transition(booking.ID, models.BookingStatusExpired, models.ActorTypeSystem, nil, nil)
			if err != nil && !errors.Is(err, models.ErrConcurrencyConflict) {
				s.logger.WithError(err).WithField("booking_code", booking.BookingCode).Error("Failed to expire departed booking")
				errCount++
				continue
			}
			lapsed++
		}
	}

	if completed > 0 || lapsed > 0 {
		s.logger.WithFields(logrus.Fields{
			"completed": completed,
			"expired":   lapsed,
		}).Info("Settled past-departure bookings")
	}
	return completed, lapsed, errCount
}

// settleDeparted resolves one confirmed booking on a departed sailing. With
// every passenger boarded the booking completes; otherwise the unboarded
// tickets are marked missed first and the booking expires. Returns the status
// the booking actually moved to, or empty when another writer moved it first.
func (s *ReconciliationService) settleDeparted(booking *models.Booking) (models.BookingStatus, error) {
	allBoarded, err := s.ticketRepo.AllBoarded(booking.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check boardings: %w", err)
	}

	target := models.BookingStatusCompleted
	if !allBoarded {
		target = models.BookingStatusExpired
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if target == models.BookingStatusExpired {
		// Before the cascade so the missed boarding record survives it.
		if err := s.ticketRepo.MarkUnboardedMissedTx(tx, booking.ID); err != nil {
			return "", fmt.Errorf("failed to mark missed boardings: %w", err)
		}
	}

	if err := s.statusService.TransitionTx(tx, booking, target, models.ActorTypeSystem, nil, nil); err != nil {
		if errors.Is(err, models.ErrConcurrencyConflict) {
			return "", nil
		}
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit settlement: %w", err)
	}
	return target, nil
}

// MarkDepartedSailings flips schedule-date rows whose departure has passed
// to the departed status.
func (s *ReconciliationService) MarkDepartedSailings() (int, error) {
	count, err := s.scheduleDateRepo.MarkDepartedBefore(s.clock.Now())
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// PollPendingPayments queries the gateway for pending gateway payments that
// have not expired yet, catching transactions whose webhook was lost. One
// failing record never stops the rest of the batch.
func (s *ReconciliationService) PollPendingPayments() (int, int) {
	if !s.midtrans.IsConfigured() {
		return 0, 0
	}

	now := s.clock.Now()
	payments, err := s.paymentRepo.GetPendingForPolling(now, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list payments for polling")
		return 0, 1
	}

	polled := 0
	errCount := 0
	for _, payment := range payments {
		status, err := s.midtrans.QueryStatus(payment.OrderID)
		if err != nil {
			var unavailable *models.GatewayUnavailableError
			if errors.As(err, &unavailable) {
				// Gateway down; the rest of the batch will fail too.
				s.logger.WithError(err).Warn("Payment gateway unreachable, aborting poll")
				return polled, errCount + 1
			}
			s.logger.WithError(err).WithField("order_id", payment.OrderID).Error("Failed to query payment status")
			errCount++
			continue
		}

		if err := s.paymentService.ApplyGatewayStatus(status); err != nil {
			s.logger.WithError(err).WithField("order_id", payment.OrderID).Error("Failed to apply polled status")
			errCount++
			continue
		}
		polled++
	}

	return polled, errCount
}

func (s *ReconciliationService) publish(eventType notify.EventType, title, message string, booking *models.Booking) {
	err := s.sink.Publish(notify.Event{
		Type:     eventType,
		Title:    title,
		Message:  message,
		Priority: notify.PriorityNormal,
		UserID:   booking.UserID,
		Data: map[string]interface{}{
			"booking_id":   booking.ID,
			"booking_code": booking.BookingCode,
		},
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to publish sweep event")
	}
}
