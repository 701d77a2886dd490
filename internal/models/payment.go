package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment платеж по бронированию, не более одного на бронирование
type Payment struct {
	ID               uint          `json:"id" gorm:"primaryKey"`
	BookingID        uint          `json:"booking_id" gorm:"not null;uniqueIndex"`
	TransactionID    string        `json:"transaction_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	GatewayOrderID   string        `json:"gateway_order_id" gorm:"type:varchar(64);index"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty" gorm:"type:varchar(64)"`
	Amount           float64       `json:"amount" gorm:"not null"`
	Currency         string        `json:"currency" gorm:"type:varchar(8);not null"`
	Status           PaymentStatus `json:"status" gorm:"type:varchar(20);default:'PENDING'"`
	GatewayResponse  string        `json:"gateway_response,omitempty" gorm:"type:text"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// PaymentOrderCreate запрос на создание заказа в платежном шлюзе
type PaymentOrderCreate struct {
	BookingID uint `json:"bookingId" binding:"required"`
}

// PaymentOrderResponse данные для оформления оплаты на клиенте
type PaymentOrderResponse struct {
	PaymentID      uint    `json:"payment_id"`
	TransactionID  string  `json:"transaction_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	KeyID          string  `json:"key_id"`
}

// PaymentCallback данные, присланные платежным шлюзом после оплаты
type PaymentCallback struct {
	PaymentID        uint   `json:"paymentId" binding:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}
