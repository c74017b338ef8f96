package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// BookingRepository handles database operations for bookings
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, booking_code, user_id, schedule_id, departure_date,
	passenger_count, vehicle_count, motorcycle_count, car_count,
	bus_count, truck_count, total_amount, status, cancellation_reason,
	rescheduled_from_id, rescheduled_to_id, created_at, updated_at`

// GenerateBookingCode generates a unique booking code.
// Format: FRY-YYYYMMDD-XXXXXX
func (r *BookingRepository) GenerateBookingCode() (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 3)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		code := fmt.Sprintf("FRY-%s-%s", todayStr, strings.ToUpper(hex.EncodeToString(randomBytes)))

		var count int
		err := r.db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE booking_code = $1`, code)
		if err != nil {
			return "", fmt.Errorf("failed to check booking code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking code after 10 attempts")
}

// CreateTx inserts a booking inside the caller's transaction
func (r *BookingRepository) CreateTx(tx *sqlx.Tx, booking *models.Booking) error {
	return tx.QueryRowx(`
		INSERT INTO bookings (
			id, booking_code, user_id, schedule_id, departure_date,
			passenger_count, vehicle_count, motorcycle_count, car_count,
			bus_count, truck_count, total_amount, status, rescheduled_from_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING created_at, updated_at`,
		booking.ID, booking.BookingCode, booking.UserID, booking.ScheduleID, booking.DepartureDate,
		booking.PassengerCount, booking.VehicleCount, booking.MotorcycleCount, booking.CarCount,
		booking.BusCount, booking.TruckCount, booking.TotalAmount, booking.Status, booking.RescheduledFromID,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

// GetByID retrieves a booking by ID, nil if absent
func (r *BookingRepository) GetByID(id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByIDForUpdate locks and retrieves a booking inside a transaction
func (r *BookingRepository) GetByIDForUpdate(tx *sqlx.Tx, id string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.Get(&booking, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByCode retrieves a booking by its external booking code, nil if absent
func (r *BookingRepository) GetByCode(code string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `SELECT`+bookingColumns+` FROM bookings WHERE booking_code = $1`, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := r.db.Select(&bookings, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	return bookings, err
}

// UpdateStatusTx applies a status change only if the booking is still in the
// expected source state. Returns false when another writer already moved it;
// the caller treats that as a concurrency conflict or a no-op.
func (r *BookingRepository) UpdateStatusTx(tx *sqlx.Tx, id string, from, to models.BookingStatus, cancellationReason *string) (bool, error) {
	result, err := tx.Exec(`
		UPDATE bookings
		SET status = $3,
			cancellation_reason = COALESCE($4, cancellation_reason),
			updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to, cancellationReason,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// SetRescheduleLinkTx records the forward link from a rescheduled booking to
// its replacement
func (r *BookingRepository) SetRescheduleLinkTx(tx *sqlx.Tx, oldID, newID string) error {
	_, err := tx.Exec(`
		UPDATE bookings
		SET rescheduled_to_id = $2, updated_at = NOW()
		WHERE id = $1`,
		oldID, newID,
	)
	return err
}

// GetPastDeparture returns pending/confirmed bookings whose departure
// (sailing date + schedule time-of-day) is already behind now.
func (r *BookingRepository) GetPastDeparture(now time.Time, limit int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := r.db.Select(&bookings, `
		SELECT b.id, b.booking_code, b.user_id, b.schedule_id, b.departure_date,
			   b.passenger_count, b.vehicle_count, b.motorcycle_count, b.car_count,
			   b.bus_count, b.truck_count, b.total_amount, b.status, b.cancellation_reason,
			   b.rescheduled_from_id, b.rescheduled_to_id, b.created_at, b.updated_at
		FROM bookings b
		JOIN schedules s ON s.id = b.schedule_id
		WHERE b.status IN ('pending', 'confirmed')
		  AND b.departure_date + s.departure_time::interval < $1
		ORDER BY b.departure_date
		LIMIT $2`,
		now, limit,
	)
	return bookings, err
}
