package models

import (
	"time"
)

type TripStatus string

const (
	TripStatusScheduled  TripStatus = "SCHEDULED"   // Запланирована, принимает бронирования
	TripStatusInProgress TripStatus = "IN_PROGRESS" // В пути
	TripStatusCompleted  TripStatus = "COMPLETED"   // Завершена
	TripStatusCancelled  TripStatus = "CANCELLED"   // Отменена
)

// DriverSeatNumber номер места водителя, всегда недоступно для бронирования
const DriverSeatNumber = "D1"

// Trip представляет конкретный рейс по маршруту.
// Инвариант: AvailableSeats + BookedSeats == Vehicle.PassengerSeats.
type Trip struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	RouteID              uint       `json:"route_id" gorm:"not null;index"`
	VehicleID            uint       `json:"vehicle_id" gorm:"not null"`
	DriverID             uint       `json:"driver_id" gorm:"not null;index"`
	DepartureTime        time.Time  `json:"departure_time" gorm:"not null;index"`
	EstimatedArrivalTime time.Time  `json:"estimated_arrival_time"`
	Status               TripStatus `json:"status" gorm:"type:varchar(20);default:'SCHEDULED'"`
	AvailableSeats       int        `json:"available_seats" gorm:"not null"`
	BookedSeats          int        `json:"booked_seats" gorm:"not null;default:0"`
	SpecialInstructions  string     `json:"special_instructions,omitempty"`
	Version              int        `json:"-" gorm:"not null;default:0"`
	CreatedAt            time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	Seats                []TripSeat `json:"seats,omitempty" gorm:"foreignKey:TripID;constraint:OnDelete:CASCADE"`
}

// TripSeat место в конкретном рейсе
type TripSeat struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	TripID       uint      `json:"trip_id" gorm:"not null;uniqueIndex:idx_trip_seat_number,priority:1"`
	SeatNumber   string    `json:"seat_number" gorm:"type:varchar(10);not null;uniqueIndex:idx_trip_seat_number,priority:2"`
	IsAvailable  bool      `json:"is_available" gorm:"not null"`
	IsDriverSeat bool      `json:"is_driver_seat" gorm:"not null;default:false"`
	Version      int       `json:"-" gorm:"not null;default:0"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TripCreate используется для планирования рейса
type TripCreate struct {
	RouteID       uint      `json:"routeId" binding:"required"`
	VehicleID     uint      `json:"vehicleId" binding:"required"`
	DriverID      uint      `json:"driverId"`
	DepartureTime time.Time `json:"departureTime" binding:"required"`

	SpecialInstructions string `json:"specialInstructions"`
}

// SeatAvailability снимок доступности мест рейса без места водителя
type SeatAvailability struct {
	TripID         uint     `json:"trip_id"`
	TotalSeats     int      `json:"total_seats"`
	AvailableSeats int      `json:"available_seats"`
	BookedSeats    int      `json:"booked_seats"`
	Available      []string `json:"available"`
	Booked         []string `json:"booked"`
}

// TripRoutePoints точки посадки и высадки рейса для пары городов и цена за место
type TripRoutePoints struct {
	TripID         uint         `json:"trip_id"`
	RouteID        uint         `json:"route_id"`
	BoardingCity   string       `json:"boarding_city"`
	DropCity       string       `json:"drop_city"`
	BoardingPoints []RoutePoint `json:"boarding_points"`
	DropPoints     []RoutePoint `json:"drop_points"`
	PricePerSeat   float64      `json:"price_per_seat"`
}
