package models

import (
	"time"

	"github.com/lib/pq"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"   // Ожидает оплаты
	BookingStatusConfirmed BookingStatus = "CONFIRMED" // Оплачено
	BookingStatusCancelled BookingStatus = "CANCELLED" // Отменено или истекло
)

// Booking представляет бронирование мест в рейсе
type Booking struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	BookingReference  string         `json:"booking_reference" gorm:"type:varchar(40);not null;uniqueIndex"`
	UserID            uint           `json:"user_id" gorm:"not null;index"`
	TripID            uint           `json:"trip_id" gorm:"not null;index"`
	BoardingPointID   uint           `json:"boarding_point_id" gorm:"not null"`
	DropPointID       uint           `json:"drop_point_id" gorm:"not null"`
	SeatNumbers       pq.StringArray `json:"seat_numbers" gorm:"type:text[];not null"`
	NumberOfSeats     int            `json:"number_of_seats" gorm:"not null"`
	TotalAmount       float64        `json:"total_amount" gorm:"not null"`
	Distance          int            `json:"distance"` // в метрах между точками посадки и высадки
	PassengerNames    pq.StringArray `json:"passenger_names" gorm:"type:text[]"`
	PassengerContacts pq.StringArray `json:"passenger_contacts" gorm:"type:text[]"`
	Status            BookingStatus  `json:"status" gorm:"type:varchar(20);default:'PENDING';index:idx_booking_status_expires,priority:1"`
	ExpiresAt         time.Time      `json:"expires_at" gorm:"index:idx_booking_status_expires,priority:2"`
	CancelReason      string         `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// BookingCreate используется только для создания нового бронирования.
// Точки задаются либо идентификаторами, либо парой город/остановка.
type BookingCreate struct {
	TripID              uint     `json:"tripId" binding:"required"`
	BoardingPointID     uint     `json:"boardingPointId"`
	DropPointID         uint     `json:"dropPointId"`
	BoardingCity        string   `json:"boardingCity"`
	BoardingSubLocation string   `json:"boardingSubLocation"`
	DropCity            string   `json:"dropCity"`
	DropSubLocation     string   `json:"dropSubLocation"`
	SeatNumbers         []string `json:"seatNumbers" binding:"required,min=1"`
	PassengerNames      []string `json:"passengerNames"`
	PassengerContacts   []string `json:"passengerContacts"`
}

// BookingStats количество бронирований по статусам
type BookingStats struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Cancelled int64 `json:"cancelled"`
}
