package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// ScheduleDateRepository handles schedule_dates rows: one row per sailing
// instance carrying live capacity counters.
type ScheduleDateRepository struct {
	db *sqlx.DB
}

// NewScheduleDateRepository creates a new ScheduleDateRepository
func NewScheduleDateRepository(db *sqlx.DB) *ScheduleDateRepository {
	return &ScheduleDateRepository{db: db}
}

const scheduleDateColumns = `
	id, schedule_id, date, passenger_count, motorcycle_count, car_count,
	bus_count, truck_count, status, status_reason, status_expiry,
	modified_by_schedule, created_at, updated_at`

// GetOrCreateForUpdate returns the row for (schedule, date), creating it with
// zero counters if missing, and locks it for the duration of the caller's
// transaction. The insert uses ON CONFLICT DO NOTHING so concurrent first
// bookings for the same date cannot create duplicate rows.
func (r *ScheduleDateRepository) GetOrCreateForUpdate(tx *sqlx.Tx, scheduleID string, date time.Time) (*models.ScheduleDate, error) {
	_, err := tx.Exec(`
		INSERT INTO schedule_dates (id, schedule_id, date, status, modified_by_schedule)
		VALUES ($1, $2, $3, 'available', TRUE)
		ON CONFLICT (schedule_id, date) DO NOTHING`,
		uuid.New().String(), scheduleID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure schedule date row: %w", err)
	}

	var sd models.ScheduleDate
	err = tx.Get(&sd, `
		SELECT`+scheduleDateColumns+`
		FROM schedule_dates
		WHERE schedule_id = $1 AND date = $2
		FOR UPDATE`,
		scheduleID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock schedule date row: %w", err)
	}

	return &sd, nil
}

// AddCounts increments all counters together and sets the row status. All
// classes commit in one statement; there is no piecemeal path.
func (r *ScheduleDateRepository) AddCounts(tx *sqlx.Tx, id string, passengers int, vehicles models.VehicleCounts, status models.ScheduleDateStatus) error {
	_, err := tx.Exec(`
		UPDATE schedule_dates
		SET passenger_count = passenger_count + $2,
			motorcycle_count = motorcycle_count + $3,
			car_count = car_count + $4,
			bus_count = bus_count + $5,
			truck_count = truck_count + $6,
			status = $7,
			updated_at = NOW()
		WHERE id = $1`,
		id, passengers, vehicles.Motorcycles, vehicles.Cars, vehicles.Buses, vehicles.Trucks, status,
	)
	return err
}

// SubtractCounts decrements all counters together, clamped at zero, and sets
// the row status. The GREATEST floor keeps counters non-negative even if
// internal state drifted.
func (r *ScheduleDateRepository) SubtractCounts(tx *sqlx.Tx, id string, passengers int, vehicles models.VehicleCounts, status models.ScheduleDateStatus) error {
	_, err := tx.Exec(`
		UPDATE schedule_dates
		SET passenger_count = GREATEST(passenger_count - $2, 0),
			motorcycle_count = GREATEST(motorcycle_count - $3, 0),
			car_count = GREATEST(car_count - $4, 0),
			bus_count = GREATEST(bus_count - $5, 0),
			truck_count = GREATEST(truck_count - $6, 0),
			status = $7,
			updated_at = NOW()
		WHERE id = $1`,
		id, passengers, vehicles.Motorcycles, vehicles.Cars, vehicles.Buses, vehicles.Trucks, status,
	)
	return err
}

// GetByScheduleAndDate fetches the row for (schedule, date), nil if absent
func (r *ScheduleDateRepository) GetByScheduleAndDate(scheduleID string, date time.Time) (*models.ScheduleDate, error) {
	var sd models.ScheduleDate
	err := r.db.Get(&sd, `
		SELECT`+scheduleDateColumns+`
		FROM schedule_dates
		WHERE schedule_id = $1 AND date = $2`,
		scheduleID, date,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sd, nil
}

// GetByID fetches a schedule date by id, nil if absent
func (r *ScheduleDateRepository) GetByID(id string) (*models.ScheduleDate, error) {
	var sd models.ScheduleDate
	err := r.db.Get(&sd, `
		SELECT`+scheduleDateColumns+`
		FROM schedule_dates
		WHERE id = $1`,
		id,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sd, nil
}

// ListRange returns the rows for a schedule between two dates inclusive
func (r *ScheduleDateRepository) ListRange(scheduleID string, from, to time.Time) ([]models.ScheduleDate, error) {
	dates := []models.ScheduleDate{}
	err := r.db.Select(&dates, `
		SELECT`+scheduleDateColumns+`
		FROM schedule_dates
		WHERE schedule_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`,
		scheduleID, from, to,
	)
	return dates, err
}

// CreateIfMissing inserts a fresh available row for (schedule, date) unless
// one already exists. Returns true when a row was created.
func (r *ScheduleDateRepository) CreateIfMissing(scheduleID string, date time.Time) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO schedule_dates (id, schedule_id, date, status, modified_by_schedule)
		VALUES ($1, $2, $3, 'available', TRUE)
		ON CONFLICT (schedule_id, date) DO NOTHING`,
		uuid.New().String(), scheduleID, date,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// SetStatusManual applies an operator override to a single sailing date and
// clears modified_by_schedule so later schedule cascades leave it alone.
func (r *ScheduleDateRepository) SetStatusManual(id string, status models.ScheduleDateStatus, reason *string, expiry *time.Time) error {
	result, err := r.db.Exec(`
		UPDATE schedule_dates
		SET status = $2, status_reason = $3, status_expiry = $4,
			modified_by_schedule = FALSE, updated_at = NOW()
		WHERE id = $1`,
		id, status, reason, expiry,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("schedule date not found")
	}
	return nil
}

// CascadeStatus propagates a schedule-level status to future sailing dates.
// Rows an operator touched directly (modified_by_schedule = FALSE) are
// skipped. Returns the number of rows changed.
func (r *ScheduleDateRepository) CascadeStatus(scheduleID string, from time.Time, status models.ScheduleDateStatus, reason *string) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE schedule_dates
		SET status = $3, status_reason = $4, updated_at = NOW()
		WHERE schedule_id = $1 AND date >= $2 AND modified_by_schedule = TRUE`,
		scheduleID, from, status, reason,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkDepartedBefore flips past sailings still open for booking to departed.
// Departure is the sailing date plus the schedule's time-of-day.
func (r *ScheduleDateRepository) MarkDepartedBefore(now time.Time) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE schedule_dates sd
		SET status = 'departed', updated_at = NOW()
		FROM schedules s
		WHERE sd.schedule_id = s.id
		  AND sd.status IN ('available', 'full')
		  AND sd.date + s.departure_time::interval < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
