package models

import (
	"errors"
	"time"
)

// VehicleType classifies a vehicle for capacity accounting
type VehicleType string

const (
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeBus        VehicleType = "bus"
	VehicleTypeTruck      VehicleType = "truck"
)

// Vehicle represents one vehicle attached to a booking
type Vehicle struct {
	ID           string      `json:"id" db:"id"`
	BookingID    string      `json:"booking_id" db:"booking_id"`
	Type         VehicleType `json:"type" db:"type"`
	LicensePlate string      `json:"license_plate" db:"license_plate"`
	OwnerName    *string     `json:"owner_name,omitempty" db:"owner_name"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// VehicleCounts holds per-class vehicle totals for a reservation
type VehicleCounts struct {
	Motorcycles int
	Cars        int
	Buses       int
	Trucks      int
}

// Total returns the combined vehicle count across classes
func (c VehicleCounts) Total() int {
	return c.Motorcycles + c.Cars + c.Buses + c.Trucks
}

// CountVehicles aggregates a vehicle request list into per-class counts
func CountVehicles(vehicles []VehicleRequest) (VehicleCounts, error) {
	var counts VehicleCounts
	for _, v := range vehicles {
		switch v.Type {
		case VehicleTypeMotorcycle:
			counts.Motorcycles++
		case VehicleTypeCar:
			counts.Cars++
		case VehicleTypeBus:
			counts.Buses++
		case VehicleTypeTruck:
			counts.Trucks++
		default:
			return VehicleCounts{}, errors.New("unknown vehicle type: " + string(v.Type))
		}
	}
	return counts, nil
}

// VehicleRequest is one vehicle in a booking request
type VehicleRequest struct {
	Type         VehicleType `json:"type" binding:"required"`
	LicensePlate string      `json:"license_plate" binding:"required"`
	OwnerName    *string     `json:"owner_name,omitempty"`
}
