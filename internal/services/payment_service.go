package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// PaymentService applies gateway payment outcomes to the booking core. Both
// the webhook endpoint and the status polling sweep funnel through
// ApplyGatewayStatus, so replayed notifications are absorbed by the same
// conditional updates either way.
type PaymentService struct {
	paymentRepo   *database.PaymentRepository
	bookingRepo   *database.BookingRepository
	statusService *BookingStatusService
	midtrans      *MidtransService
	sink          notify.Sink
	clock         Clock
	logger        *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	statusService *BookingStatusService,
	midtrans *MidtransService,
	sink notify.Sink,
	clock Clock,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		bookingRepo:   bookingRepo,
		statusService: statusService,
		midtrans:      midtrans,
		sink:          sink,
		clock:         clock,
		logger:        logger,
	}
}

// ProcessNotification verifies and applies a raw webhook notification body.
// Verification happens before any lookup or mutation; a bad signature
// returns models.ErrPaymentVerificationFailed and changes nothing.
func (s *PaymentService) ProcessNotification(body []byte) error {
	payload, err := s.midtrans.ParseNotification(body)
	if err != nil {
		return err
	}
	return s.ApplyGatewayStatus(payload)
}

// ApplyGatewayStatus maps a verified gateway status onto the payment record
// and drives the matching booking transition. Statuses that are already
// applied, or bookings another writer moved first, are treated as no-ops.
func (s *PaymentService) ApplyGatewayStatus(payload *TransactionStatusResponse) error {
	payment, err := s.paymentRepo.GetByOrderID(payload.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return fmt.Errorf("payment for order %s: %w", payload.OrderID, models.ErrNotFound)
	}

	paymentStatus, bookingTarget, actionable := MapGatewayStatus(payload.TransactionStatus, payload.FraudStatus)

	log := s.logger.WithFields(logrus.Fields{
		"order_id":           payload.OrderID,
		"transaction_status": payload.TransactionStatus,
		"fraud_status":       payload.FraudStatus,
		"mapped_status":      paymentStatus,
	})

	if !actionable {
		if paymentStatus == models.PaymentStatusChallenge {
			if _, err := s.paymentRepo.UpdateFromGateway(payment.ID, paymentStatus, &payload.PaymentType, &payload.TransactionID, nil); err != nil {
				return fmt.Errorf("failed to mark payment challenged: %w", err)
			}
			log.Warn("Payment flagged for fraud review")
		}
		return nil
	}

	var paidAt *time.Time
	if paymentStatus == models.PaymentStatusSuccess {
		t := s.parseSettlementTime(payload.SettlementTime)
		paidAt = &t
	}

	updated, err := s.paymentRepo.UpdateFromGateway(payment.ID, paymentStatus, &payload.PaymentType, &payload.TransactionID, paidAt)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if !updated && paymentStatus == models.PaymentStatusRefunded {
		// A refund lands on a payment that already settled, which the
		// pending/challenge guard above does not match.
		updated, err = s.paymentRepo.MarkRefunded(payment.ID)
		if err != nil {
			return fmt.Errorf("failed to mark payment refunded: %w", err)
		}
	}
	if !updated {
		log.Info("Payment already settled, notification ignored")
		return nil
	}

	if err := s.transitionBooking(payment.BookingID, bookingTarget); err != nil {
		return err
	}

	if paymentStatus == models.PaymentStatusSuccess {
		s.publishPaymentSuccess(payment)
	}

	log.Info("Gateway payment status applied")
	return nil
}

func (s *PaymentService) transitionBooking(bookingID string, target models.BookingStatus) error {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("booking %s: %w", bookingID, models.ErrNotFound)
	}
	if booking.Status == target {
		return nil
	}

	// A refund can land on a booking that is still confirmed; the refund
	// implies the cancellation.
	if target == models.BookingStatusRefunded && booking.Status == models.BookingStatusConfirmed {
		if _, err := s.statusService.Transition(bookingID, models.BookingStatusCancelled, models.ActorTypeSystem, nil, nil); err != nil && !errors.Is(err, models.ErrConcurrencyConflict) {
			return fmt.Errorf("failed to cancel before refund: %w", err)
		}
	}

	_, err = s.statusService.Transition(bookingID, target, models.ActorTypeSystem, nil, nil)
	if err != nil {
		var invalid *models.InvalidTransitionError
		if errors.Is(err, models.ErrConcurrencyConflict) || errors.As(err, &invalid) {
			s.logger.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"target":     target,
			}).WithError(err).Warn("Booking transition skipped for gateway status")
			return nil
		}
		return err
	}
	return nil
}

func (s *PaymentService) parseSettlementTime(value string) time.Time {
	if value != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
			return t
		}
	}
	return s.clock.Now()
}

func (s *PaymentService) publishPaymentSuccess(payment *models.Payment) {
	booking, err := s.bookingRepo.GetByID(payment.BookingID)
	if err != nil || booking == nil {
		return
	}
	err = s.sink.Publish(notify.Event{
		Type:     notify.EventPaymentSuccess,
		Title:    "Payment Received",
		Message:  fmt.Sprintf("Payment for booking %s has been received.", booking.BookingCode),
		Priority: notify.PriorityNormal,
		UserID:   booking.UserID,
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"order_id":   payment.OrderID,
			"amount":     payment.Amount,
		},
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to publish payment event")
	}
}
