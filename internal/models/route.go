package models

import "time"

// Route holds the pricing table for a ferry crossing. Pricing is an external
// collaborator of the booking core: the reservation path only reads it.
type Route struct {
	ID              string    `json:"id" db:"id"`
	Origin          string    `json:"origin" db:"origin"`
	Destination     string    `json:"destination" db:"destination"`
	BasePrice       float64   `json:"base_price" db:"base_price"` // per passenger
	MotorcyclePrice float64   `json:"motorcycle_price" db:"motorcycle_price"`
	CarPrice        float64   `json:"car_price" db:"car_price"`
	BusPrice        float64   `json:"bus_price" db:"bus_price"`
	TruckPrice      float64   `json:"truck_price" db:"truck_price"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// PriceFor computes the total fare for a passenger count and vehicle mix
func (r *Route) PriceFor(passengers int, vehicles VehicleCounts) float64 {
	total := r.BasePrice * float64(passengers)
	total += r.MotorcyclePrice * float64(vehicles.Motorcycles)
	total += r.CarPrice * float64(vehicles.Cars)
	total += r.BusPrice * float64(vehicles.Buses)
	total += r.TruckPrice * float64(vehicles.Trucks)
	return total
}
