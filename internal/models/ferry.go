package models

import "time"

// FerryStatus represents the operational status of a ferry
type FerryStatus string

const (
	FerryStatusActive      FerryStatus = "active"
	FerryStatusMaintenance FerryStatus = "maintenance"
	FerryStatusInactive    FerryStatus = "inactive"
)

// Ferry represents a vessel with fixed capacity per class
type Ferry struct {
	ID                 string      `json:"id" db:"id"`
	Name               string      `json:"name" db:"name"`
	Operator           *string     `json:"operator,omitempty" db:"operator"`
	CapacityPassenger  int         `json:"capacity_passenger" db:"capacity_passenger"`
	CapacityMotorcycle int         `json:"capacity_motorcycle" db:"capacity_motorcycle"`
	CapacityCar        int         `json:"capacity_car" db:"capacity_car"`
	CapacityBus        int         `json:"capacity_bus" db:"capacity_bus"`
	CapacityTruck      int         `json:"capacity_truck" db:"capacity_truck"`
	Status             FerryStatus `json:"status" db:"status"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// FerryCapacity is the denormalized capacity value object handed to the
// capacity ledger, so the ledger never walks persistence relations itself.
type FerryCapacity struct {
	Passenger  int
	Motorcycle int
	Car        int
	Bus        int
	Truck      int
}

// Capacity returns the ferry's per-class limits as a value object
func (f *Ferry) Capacity() FerryCapacity {
	return FerryCapacity{
		Passenger:  f.CapacityPassenger,
		Motorcycle: f.CapacityMotorcycle,
		Car:        f.CapacityCar,
		Bus:        f.CapacityBus,
		Truck:      f.CapacityTruck,
	}
}
