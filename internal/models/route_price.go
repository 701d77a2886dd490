package models

import (
	"time"
)

// RoutePrice фиксированная цена за одно место для пары точек посадки/высадки
type RoutePrice struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	RouteID         uint       `json:"route_id" gorm:"not null;uniqueIndex:idx_route_price_pair,priority:1;index"`
	BoardingPointID uint       `json:"boarding_point_id" gorm:"not null;uniqueIndex:idx_route_price_pair,priority:2"`
	DropPointID     uint       `json:"drop_point_id" gorm:"not null;uniqueIndex:idx_route_price_pair,priority:3"`
	Price           float64    `json:"price" gorm:"not null"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	BoardingPoint   RoutePoint `json:"-" gorm:"foreignKey:BoardingPointID"`
	DropPoint       RoutePoint `json:"-" gorm:"foreignKey:DropPointID"`
}

// CityPriceInput цена между двумя городами маршрута
type CityPriceInput struct {
	BoardingCity string  `json:"boardingCity" binding:"required"`
	DropCity     string  `json:"dropCity" binding:"required"`
	Price        float64 `json:"price" binding:"required,gt=0"`
}

// RoutePricesSet запрос на полную замену матрицы цен
type RoutePricesSet struct {
	Prices []CityPriceInput `json:"prices" binding:"required,min=1,dive"`
}

// RoutePriceCombination строка таблицы цен. Price == nil, если цена не задана.
type RoutePriceCombination struct {
	BoardingCity      string   `json:"boarding_city"`
	DropCity          string   `json:"drop_city"`
	Price             *float64 `json:"price"`
	EstimatedDistance int      `json:"estimated_distance"` // в метрах
	EstimatedDuration int      `json:"estimated_duration"` // в минутах
}
