package models

import (
	"time"
)

// Route представляет постоянный маршрут водителя через несколько городов
type Route struct {
	ID                uint         `json:"id" gorm:"primaryKey"`
	DriverID          uint         `json:"driver_id" gorm:"not null;index"`
	RouteName         string       `json:"route_name" gorm:"not null"`
	TotalDistance     float64      `json:"total_distance"`     // Общее расстояние в метрах
	EstimatedDuration int          `json:"estimated_duration"` // Общее время в минутах
	IsActive          bool         `json:"is_active" gorm:"default:true"`
	Points            []RoutePoint `json:"points,omitempty" gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// RoutePoint представляет точку посадки/высадки на маршруте.
// SequenceOrder глобальный в пределах маршрута и начинается с 1.
type RoutePoint struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	RouteID           uint      `json:"route_id" gorm:"not null;uniqueIndex:idx_route_point_sequence,priority:1;index"`
	City              string    `json:"city" gorm:"not null;index"`
	SubLocation       string    `json:"sub_location" gorm:"not null"`
	PointName         string    `json:"point_name" gorm:"not null"`
	Address           string    `json:"address"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	SequenceOrder     int       `json:"sequence_order" gorm:"not null;uniqueIndex:idx_route_point_sequence,priority:2"`
	DistanceFromStart int       `json:"distance_from_start"` // в метрах
	TimeFromStart     int       `json:"time_from_start"`     // в минутах
	IsBoardingPoint   bool      `json:"is_boarding_point"`
	IsDropPoint       bool      `json:"is_drop_point"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// StopPointInput описывает остановку внутри города в запросе на создание маршрута
type StopPointInput struct {
	SubLocation       string  `json:"subLocation" binding:"required"`
	Address           string  `json:"address" binding:"required"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	DistanceFromStart int     `json:"distanceFromStart" binding:"gte=0"`
	TimeFromStart     int     `json:"timeFromStart" binding:"gte=0"`
}

// CityRouteInput описывает город маршрута. Флаги посадки/высадки действуют на все его остановки.
type CityRouteInput struct {
	City            string           `json:"city" binding:"required"`
	SequenceOrder   int              `json:"sequenceOrder" binding:"required"`
	IsBoardingPoint bool             `json:"isBoardingPoint"`
	IsDropPoint     bool             `json:"isDropPoint"`
	Points          []StopPointInput `json:"points" binding:"required,dive"`
}

// RouteCreate используется для создания нового маршрута
type RouteCreate struct {
	DriverID          uint             `json:"driverId"`
	RouteName         string           `json:"routeName" binding:"required"`
	TotalDistance     float64          `json:"totalDistance" binding:"gte=0"`
	EstimatedDuration int              `json:"estimatedDuration" binding:"gte=0"`
	Cities            []CityRouteInput `json:"cities" binding:"required,dive"`
}
