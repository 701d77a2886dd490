package services

import (
	"context"
	"log"
	"time"

	"carpool-backend/internal/models"
)

// Типы событий бронирования
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// Причины отмены бронирования
const (
	CancelReasonUser          = "user_cancelled"
	CancelReasonExpired       = "expired"
	CancelReasonPaymentFailed = "payment_failed"
)

// BookingEvent изменение состояния бронирования, рассылается после фиксации транзакции
type BookingEvent struct {
	Type        string               `json:"type"`
	BookingID   uint                 `json:"booking_id"`
	Reference   string               `json:"booking_reference"`
	UserID      uint                 `json:"user_id"`
	TripID      uint                 `json:"trip_id"`
	DriverID    uint                 `json:"driver_id,omitempty"`
	Status      models.BookingStatus `json:"status"`
	SeatNumbers []string             `json:"seat_numbers"`
	Reason      string               `json:"reason,omitempty"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

func newBookingEvent(eventType string, booking *models.Booking, driverID uint, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID,
		Reference:   booking.BookingReference,
		UserID:      booking.UserID,
		TripID:      booking.TripID,
		DriverID:    driverID,
		Status:      booking.Status,
		SeatNumbers: append([]string(nil), booking.SeatNumbers...),
		Reason:      booking.CancelReason,
		OccurredAt:  at,
	}
}

// EventPublisher получатель событий бронирования. Ошибка доставки не влияет на бронирование.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// Notifier рассылает событие всем подключенным каналам и только логирует ошибки
type Notifier struct {
	publishers []EventPublisher
}

func NewNotifier(publishers ...EventPublisher) *Notifier {
	var active []EventPublisher
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &Notifier{publishers: active}
}

func (n *Notifier) Publish(ctx context.Context, event BookingEvent) error {
	for _, p := range n.publishers {
		if err := p.Publish(ctx, event); err != nil {
			log.Printf("Ошибка отправки события %s для бронирования %d: %v", event.Type, event.BookingID, err)
		}
	}
	return nil
}
