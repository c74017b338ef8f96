package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// RouteRepository reads the route pricing table. The booking core never
// writes routes; pricing is owned elsewhere.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeColumns = `
	id, origin, destination, base_price, motorcycle_price, car_price,
	bus_price, truck_price, duration_minutes, created_at, updated_at`

// GetByID retrieves a route by ID, nil if absent
func (r *RouteRepository) GetByID(id string) (*models.Route, error) {
	var route models.Route
	err := r.db.Get(&route, `SELECT`+routeColumns+` FROM routes WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// GetByScheduleID retrieves the route a schedule sails, nil if absent
func (r *RouteRepository) GetByScheduleID(scheduleID string) (*models.Route, error) {
	var route models.Route
	err := r.db.Get(&route, `
		SELECT r.id, r.origin, r.destination, r.base_price, r.motorcycle_price,
			   r.car_price, r.bus_price, r.truck_price, r.duration_minutes,
			   r.created_at, r.updated_at
		FROM routes r
		JOIN schedules s ON s.route_id = r.id
		WHERE s.id = $1`,
		scheduleID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}
