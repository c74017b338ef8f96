package database

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// TicketRepository handles database operations for per-passenger tickets
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// GenerateTicketCode generates a unique ticket code.
// Format: TKT-YYYYMMDDHHMMSS-XXXXXXXX
func (r *TicketRepository) GenerateTicketCode() (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		code := fmt.Sprintf("TKT-%s-%s",
			time.Now().Format("20060102150405"),
			strings.ToUpper(hex.EncodeToString(randomBytes)),
		)

		var count int
		err := r.db.Get(&count, `SELECT COUNT(*) FROM tickets WHERE ticket_code = $1`, code)
		if err != nil {
			return "", fmt.Errorf("failed to check ticket code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique ticket code after 10 attempts")
}

// CreateTx inserts a ticket inside the caller's transaction
func (r *TicketRepository) CreateTx(tx *sqlx.Tx, ticket *models.Ticket) error {
	return tx.QueryRowx(`
		INSERT INTO tickets (
			id, booking_id, ticket_code, passenger_name, passenger_id_number,
			status, boarding_status, checked_in
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		ticket.ID, ticket.BookingID, ticket.TicketCode, ticket.PassengerName, ticket.PassengerID,
		ticket.Status, ticket.BoardingStatus, ticket.CheckedIn,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

// GetByBookingID retrieves all tickets of a booking
func (r *TicketRepository) GetByBookingID(bookingID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := r.db.Select(&tickets, `
		SELECT id, booking_id, ticket_code, passenger_name, passenger_id_number,
			   status, boarding_status, checked_in, checked_in_at, created_at, updated_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY created_at`,
		bookingID,
	)
	return tickets, err
}

// CascadeStatusTx moves every still-active ticket of a booking to the given
// status, as part of a booking status transition. When boarding is non-nil it
// is applied to tickets that never boarded; boarded or missed tickets keep
// their boarding record.
func (r *TicketRepository) CascadeStatusTx(tx *sqlx.Tx, bookingID string, status models.TicketStatus, boarding *models.BoardingStatus) error {
	_, err := tx.Exec(`
		UPDATE tickets
		SET status = $2,
			boarding_status = CASE
				WHEN $3::text IS NOT NULL AND boarding_status = 'not_boarded' THEN $3::text
				ELSE boarding_status
			END,
			updated_at = NOW()
		WHERE booking_id = $1 AND status = 'active'`,
		bookingID, status, boarding,
	)
	return err
}

// MarkUnboardedMissedTx flags tickets that never boarded a departed sailing.
// Run before expiring the booking so the missed record survives the cascade.
func (r *TicketRepository) MarkUnboardedMissedTx(tx *sqlx.Tx, bookingID string) error {
	_, err := tx.Exec(`
		UPDATE tickets
		SET boarding_status = 'missed', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'active' AND boarding_status = 'not_boarded'`,
		bookingID,
	)
	return err
}

// AllBoarded reports whether every ticket of the booking has boarded
func (r *TicketRepository) AllBoarded(bookingID string) (bool, error) {
	var notBoarded int
	err := r.db.Get(&notBoarded, `
		SELECT COUNT(*) FROM tickets
		WHERE booking_id = $1 AND boarding_status != 'boarded'`,
		bookingID,
	)
	if err != nil {
		return false, err
	}
	return notBoarded == 0, nil
}

// CheckIn marks a ticket as checked in and boarded. Only active tickets on a
// not-boarded state qualify; a second call is a no-op.
func (r *TicketRepository) CheckIn(ticketCode string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tickets
		SET checked_in = TRUE, checked_in_at = NOW(),
			boarding_status = 'boarded', updated_at = NOW()
		WHERE ticket_code = $1 AND status = 'active' AND boarding_status = 'not_boarded'`,
		ticketCode,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
