package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// BookingLogRepository handles the append-only booking audit trail
type BookingLogRepository struct {
	db *sqlx.DB
}

// NewBookingLogRepository creates a new BookingLogRepository
func NewBookingLogRepository(db *sqlx.DB) *BookingLogRepository {
	return &BookingLogRepository{db: db}
}

// CreateTx appends a log entry inside the caller's transaction
func (r *BookingLogRepository) CreateTx(tx *sqlx.Tx, entry *models.BookingLog) error {
	return tx.QueryRowx(`
		INSERT INTO booking_logs (
			id, booking_id, previous_status, new_status, actor_type, actor_id, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		entry.ID, entry.BookingID, entry.PreviousStatus, entry.NewStatus,
		entry.ActorType, entry.ActorID, entry.Notes,
	).Scan(&entry.CreatedAt)
}

// GetByBookingID retrieves the audit trail of a booking, oldest first
func (r *BookingLogRepository) GetByBookingID(bookingID string) ([]models.BookingLog, error) {
	logs := []models.BookingLog{}
	err := r.db.Select(&logs, `
		SELECT id, booking_id, previous_status, new_status, actor_type, actor_id, notes, created_at
		FROM booking_logs
		WHERE booking_id = $1
		ORDER BY created_at`,
		bookingID,
	)
	return logs, err
}
