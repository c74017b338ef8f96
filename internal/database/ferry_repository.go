package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// FerryRepository handles database operations for ferries
type FerryRepository struct {
	db *sqlx.DB
}

// NewFerryRepository creates a new FerryRepository
func NewFerryRepository(db *sqlx.DB) *FerryRepository {
	return &FerryRepository{db: db}
}

// GetByID retrieves a ferry by ID, nil if absent
func (r *FerryRepository) GetByID(id string) (*models.Ferry, error) {
	var ferry models.Ferry
	err := r.db.Get(&ferry, `
		SELECT id, name, operator, capacity_passenger, capacity_motorcycle,
			   capacity_car, capacity_bus, capacity_truck, status, created_at, updated_at
		FROM ferries
		WHERE id = $1`,
		id,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ferry, nil
}

// GetCapacityByScheduleID resolves the capacity value object of the ferry
// assigned to a schedule. The ledger works off this snapshot instead of
// walking relations itself.
func (r *FerryRepository) GetCapacityByScheduleID(scheduleID string) (*models.FerryCapacity, error) {
	var capacity models.FerryCapacity
	err := r.db.QueryRow(`
		SELECT f.capacity_passenger, f.capacity_motorcycle, f.capacity_car,
			   f.capacity_bus, f.capacity_truck
		FROM ferries f
		JOIN schedules s ON s.ferry_id = f.id
		WHERE s.id = $1`,
		scheduleID,
	).Scan(&capacity.Passenger, &capacity.Motorcycle, &capacity.Car, &capacity.Bus, &capacity.Truck)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &capacity, nil
}
