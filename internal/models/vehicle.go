package models

import (
	"time"
)

// Vehicle автомобиль водителя. PassengerSeats не включает место водителя.
type Vehicle struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	DriverID       uint      `json:"driver_id" gorm:"not null;index"`
	CarBrand       string    `json:"car_brand" gorm:"not null"`
	CarModel       string    `json:"car_model" gorm:"not null"`
	CarColor       string    `json:"car_color"`
	CarNumber      string    `json:"car_number" gorm:"not null;unique"`
	PassengerSeats int       `json:"passenger_seats" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VehicleCreate запрос на регистрацию автомобиля водителя
type VehicleCreate struct {
	CarBrand       string `json:"carBrand" binding:"required"`
	CarModel       string `json:"carModel" binding:"required"`
	CarColor       string `json:"carColor"`
	CarNumber      string `json:"carNumber" binding:"required"`
	PassengerSeats int    `json:"passengerSeats" binding:"required,gt=0,lte=50"`
}
