package services

import (
	"context"

	"carpool-backend/internal/websocket"
)

// WebsocketPublisher доставляет события бронирования пассажиру и водителю через WebSocket
type WebsocketPublisher struct{}

func NewWebsocketPublisher() *WebsocketPublisher {
	return &WebsocketPublisher{}
}

func (p *WebsocketPublisher) Publish(ctx context.Context, event BookingEvent) error {
	if event.UserID > 0 {
		websocket.SendBookingStatusUpdate(event.UserID, event.BookingID, event.Reference, string(event.Status), event.SeatNumbers)
	}
	if event.DriverID > 0 {
		websocket.SendBookingStatusUpdate(event.DriverID, event.BookingID, event.Reference, string(event.Status), event.SeatNumbers)
		websocket.SendTripSeatsUpdate(event.DriverID, event.TripID, event.SeatNumbers, event.Type == EventBookingCancelled)
	}
	return nil
}
