package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// PaymentRepository handles database operations for payments
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, booking_id, order_id, amount, method, channel, status,
	transaction_id, expiry_date, paid_at, created_at, updated_at`

// CreateTx inserts a payment inside the caller's transaction
func (r *PaymentRepository) CreateTx(tx *sqlx.Tx, payment *models.Payment) error {
	return tx.QueryRowx(`
		INSERT INTO payments (
			id, booking_id, order_id, amount, method, channel, status,
			transaction_id, expiry_date, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		payment.ID, payment.BookingID, payment.OrderID, payment.Amount, payment.Method,
		payment.Channel, payment.Status, payment.TransactionID, payment.ExpiryDate, payment.PaidAt,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

// GetByOrderID retrieves a payment by its gateway order id, nil if absent
func (r *PaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Get(&payment, `SELECT`+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetLatestByBookingID retrieves the newest payment of a booking, nil if none
func (r *PaymentRepository) GetLatestByBookingID(bookingID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Get(&payment, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		bookingID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetExpiredPending returns pending payments past their expiry deadline
func (r *PaymentRepository) GetExpiredPending(now time.Time, limit int) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := r.db.Select(&payments, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE status = 'pending' AND expiry_date < $1
		ORDER BY expiry_date
		LIMIT $2`,
		now, limit,
	)
	return payments, err
}

// GetPendingForPolling returns gateway payments still inside their expiry
// window, for status polling against the gateway.
func (r *PaymentRepository) GetPendingForPolling(now time.Time, limit int) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := r.db.Select(&payments, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE status = 'pending' AND method = 'gateway' AND expiry_date > $1
		ORDER BY created_at
		LIMIT $2`,
		now, limit,
	)
	return payments, err
}

// MarkExpired flips a pending payment to expired. Conditional on the pending
// state, so a second sweep runner's write is a no-op.
func (r *PaymentRepository) MarkExpired(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE payments
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// UpdateFromGateway applies a gateway-reported outcome to a payment that is
// still pending or in challenge. Returns false when the payment already left
// those states.
func (r *PaymentRepository) UpdateFromGateway(id string, status models.PaymentStatus, channel, transactionID *string, paidAt *time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE payments
		SET status = $2,
			channel = COALESCE($3, channel),
			transaction_id = COALESCE($4, transaction_id),
			paid_at = COALESCE($5, paid_at),
			updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'challenge')`,
		id, status, channel, transactionID, paidAt,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkRefunded records a refund against a successful payment
func (r *PaymentRepository) MarkRefunded(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE payments
		SET status = 'refunded', updated_at = NOW()
		WHERE id = $1 AND status = 'success'`,
		id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
