package repository

import (
	"context"
	"errors"
	"time"

	"carpool-backend/internal/models"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrConflict условное обновление не затронуло ни одной строки
	ErrConflict = errors.New("concurrent modification")
)

// Store доступ к данным маршрутов, рейсов, бронирований и платежей.
// Методы Lock* берут блокировку строки и имеют смысл только внутри Transaction.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateRoute(ctx context.Context, route *models.Route) error
	GetRoute(ctx context.Context, id uint) (*models.Route, error)
	ListRoutesByDriver(ctx context.Context, driverID uint) ([]models.Route, error)
	ListRoutePoints(ctx context.Context, routeID uint) ([]models.RoutePoint, error)
	GetRoutePoint(ctx context.Context, id uint) (*models.RoutePoint, error)
	FindRoutePoint(ctx context.Context, routeID uint, city, subLocation string) (*models.RoutePoint, error)

	ReplaceRoutePrices(ctx context.Context, routeID uint, prices []models.RoutePrice) error
	ListRoutePrices(ctx context.Context, routeID uint) ([]models.RoutePrice, error)
	GetRoutePrice(ctx context.Context, routeID, boardingPointID, dropPointID uint) (*models.RoutePrice, error)

	CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error)
	ListVehiclesByDriver(ctx context.Context, driverID uint) ([]models.Vehicle, error)

	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id uint) (*models.Trip, error)
	LockTrip(ctx context.Context, id uint) (*models.Trip, error)
	ListTripsByDriver(ctx context.Context, driverID uint) ([]models.Trip, error)
	UpdateTripSeatCounts(ctx context.Context, trip *models.Trip) error
	ListTripSeats(ctx context.Context, tripID uint) ([]models.TripSeat, error)
	LockTripSeats(ctx context.Context, tripID uint, seatNumbers []string) ([]models.TripSeat, error)
	SetSeatAvailability(ctx context.Context, seat *models.TripSeat, available bool) error

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	LockBooking(ctx context.Context, id uint) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, booking *models.Booking, from models.BookingStatus) error
	ListBookingsByUser(ctx context.Context, userID uint) ([]models.Booking, error)
	ListBookingsByTrip(ctx context.Context, tripID uint, status models.BookingStatus) ([]models.Booking, error)
	CountBookingsByStatus(ctx context.Context, userID uint) (models.BookingStats, error)
	ListExpiredBookings(ctx context.Context, now time.Time, afterID uint, limit int) ([]models.Booking, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
	LockPayment(ctx context.Context, id uint) (*models.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID uint) (*models.Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
}
