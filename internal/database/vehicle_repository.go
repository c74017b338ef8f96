package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/models"
)

// VehicleRepository handles database operations for booking vehicles
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// CreateTx inserts a vehicle inside the caller's transaction
func (r *VehicleRepository) CreateTx(tx *sqlx.Tx, vehicle *models.Vehicle) error {
	return tx.QueryRowx(`
		INSERT INTO vehicles (id, booking_id, type, license_plate, owner_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		vehicle.ID, vehicle.BookingID, vehicle.Type, vehicle.LicensePlate, vehicle.OwnerName,
	).Scan(&vehicle.CreatedAt, &vehicle.UpdatedAt)
}

// GetByBookingID retrieves all vehicles of a booking
func (r *VehicleRepository) GetByBookingID(bookingID string) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	err := r.db.Select(&vehicles, `
		SELECT id, booking_id, type, license_plate, owner_name, created_at, updated_at
		FROM vehicles
		WHERE booking_id = $1
		ORDER BY created_at`,
		bookingID,
	)
	return vehicles, err
}
