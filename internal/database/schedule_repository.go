package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// ScheduleRepository handles database operations for schedules
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `
	id, route_id, ferry_id, departure_time, arrival_time, days_of_week,
	status, status_reason, status_expiry, created_at, updated_at`

// GetByID retrieves a schedule by ID, nil if absent
func (r *ScheduleRepository) GetByID(id string) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.Get(&schedule, `SELECT`+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetActive retrieves all active schedules
func (r *ScheduleRepository) GetActive() ([]models.Schedule, error) {
	schedules := []models.Schedule{}
	err := r.db.Select(&schedules, `
		SELECT`+scheduleColumns+`
		FROM schedules
		WHERE status = 'active'
		ORDER BY departure_time`,
	)
	return schedules, err
}

// GetActiveByRoute retrieves active schedules on a route
func (r *ScheduleRepository) GetActiveByRoute(routeID string) ([]models.Schedule, error) {
	schedules := []models.Schedule{}
	err := r.db.Select(&schedules, `
		SELECT`+scheduleColumns+`
		FROM schedules
		WHERE route_id = $1 AND status = 'active'
		ORDER BY departure_time`,
		routeID,
	)
	return schedules, err
}

// UpdateStatus changes the schedule-level status
func (r *ScheduleRepository) UpdateStatus(id string, status models.ScheduleStatus, reason *string, expiry *time.Time) error {
	result, err := r.db.Exec(`
		UPDATE schedules
		SET status = $2, status_reason = $3, status_expiry = $4, updated_at = NOW()
		WHERE id = $1`,
		id, status, reason, expiry,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("schedule not found")
	}
	return nil
}

// HasBookings reports whether any booking references the schedule. Schedules
// with bookings are soft-blocked from deletion.
func (r *ScheduleRepository) HasBookings(id string) (bool, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE schedule_id = $1`, id)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
