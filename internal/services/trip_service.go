package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"
)

// TripService планирует рейсы и отдает состояние мест
type TripService struct {
	store repository.Store
	now   func() time.Time
}

func NewTripService(store repository.Store) *TripService {
	return &TripService{store: store, now: time.Now}
}

// buildTripSeats создает место водителя и места пассажиров S1..Sn
func buildTripSeats(passengerSeats int) []models.TripSeat {
	seats := make([]models.TripSeat, 0, passengerSeats+1)
	seats = append(seats, models.TripSeat{
		SeatNumber:   models.DriverSeatNumber,
		IsAvailable:  false,
		IsDriverSeat: true,
	})
	for i := 1; i <= passengerSeats; i++ {
		seats = append(seats, models.TripSeat{
			SeatNumber:  fmt.Sprintf("S%d", i),
			IsAvailable: true,
		})
	}
	return seats
}

// ScheduleTrip создает рейс по маршруту вместе со всеми местами в одной транзакции
func (s *TripService) ScheduleTrip(ctx context.Context, actor Actor, req models.TripCreate) (*models.Trip, error) {
	if req.DepartureTime.IsZero() {
		return nil, apperror.Validation("departureTime: is required")
	}
	if !req.DepartureTime.After(s.now()) {
		return nil, apperror.Validation("departureTime: must be in the future")
	}

	// Водитель планирует рейс на себя, администратор может указать водителя
	driverID := actor.UserID
	if actor.IsAdmin() {
		driverID = req.DriverID
	}

	var trip *models.Trip
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		route, err := tx.GetRoute(ctx, req.RouteID)
		if err != nil {
			return notFoundOr(err, apperror.CodeRouteNotFound, "route %d not found", req.RouteID)
		}
		if !route.IsActive {
			return apperror.State(apperror.CodeInvalidRoute, "route %d is not active", route.ID)
		}
		if driverID == 0 {
			driverID = route.DriverID
		}
		if route.DriverID != driverID {
			return apperror.Forbidden("route %d belongs to another driver", route.ID)
		}

		vehicle, err := tx.GetVehicle(ctx, req.VehicleID)
		if err != nil {
			return notFoundOr(err, apperror.CodeVehicleNotFound, "vehicle %d not found", req.VehicleID)
		}
		if vehicle.DriverID != driverID {
			return apperror.ForbiddenCode(apperror.CodeVehicleNotOwned, "vehicle %d does not belong to driver %d", vehicle.ID, driverID)
		}
		if vehicle.PassengerSeats <= 0 {
			return apperror.Validation("vehicle %d has no passenger seats", vehicle.ID)
		}

		trip = &models.Trip{
			RouteID:              route.ID,
			VehicleID:            vehicle.ID,
			DriverID:             driverID,
			DepartureTime:        req.DepartureTime,
			EstimatedArrivalTime: req.DepartureTime.Add(time.Duration(route.EstimatedDuration) * time.Minute),
			Status:               models.TripStatusScheduled,
			AvailableSeats:       vehicle.PassengerSeats,
			BookedSeats:          0,
			SpecialInstructions:  req.SpecialInstructions,
			Seats:                buildTripSeats(vehicle.PassengerSeats),
		}
		if err := tx.CreateTrip(ctx, trip); err != nil {
			return apperror.Internal(err, "create trip")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Рейс %d запланирован: маршрут %d, водитель %d, мест %d", trip.ID, trip.RouteID, trip.DriverID, trip.AvailableSeats)
	return trip, nil
}

func (s *TripService) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeTripNotFound, "trip %d not found", id)
	}
	return trip, nil
}

func (s *TripService) ListDriverTrips(ctx context.Context, driverID uint) ([]models.Trip, error) {
	trips, err := s.store.ListTripsByDriver(ctx, driverID)
	if err != nil {
		return nil, apperror.Internal(err, "list trips of driver %d", driverID)
	}
	return trips, nil
}

// GetSeatAvailability возвращает свободные и занятые места рейса без места водителя
func (s *TripService) GetSeatAvailability(ctx context.Context, tripID uint) (*models.SeatAvailability, error) {
	var (
		trip  *models.Trip
		seats []models.TripSeat
	)
	// Блокировка рейса держит бронирования и отмены, пока читаются места,
	// поэтому счетчики и список мест согласованы
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		trip, err = tx.LockTrip(ctx, tripID)
		if err != nil {
			return notFoundOr(err, apperror.CodeTripNotFound, "trip %d not found", tripID)
		}
		seats, err = tx.ListTripSeats(ctx, tripID)
		if err != nil {
			return apperror.Internal(err, "load seats of trip %d", tripID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot := &models.SeatAvailability{
		TripID:         trip.ID,
		TotalSeats:     trip.AvailableSeats + trip.BookedSeats,
		AvailableSeats: trip.AvailableSeats,
		BookedSeats:    trip.BookedSeats,
		Available:      []string{},
		Booked:         []string{},
	}
	for _, seat := range seats {
		if seat.IsDriverSeat {
			continue
		}
		if seat.IsAvailable {
			snapshot.Available = append(snapshot.Available, seat.SeatNumber)
		} else {
			snapshot.Booked = append(snapshot.Booked, seat.SeatNumber)
		}
	}
	return snapshot, nil
}

// GetTripRoutePoints возвращает точки посадки и высадки для пары городов и цену за место
func (s *TripService) GetTripRoutePoints(ctx context.Context, tripID uint, boardingCity, dropCity string) (*models.TripRoutePoints, error) {
	if boardingCity == "" || dropCity == "" {
		return nil, apperror.Validation("boardingCity and dropCity are required")
	}
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	points, err := s.store.ListRoutePoints(ctx, trip.RouteID)
	if err != nil {
		return nil, apperror.Internal(err, "load points of route %d", trip.RouteID)
	}

	result := &models.TripRoutePoints{
		TripID:       trip.ID,
		RouteID:      trip.RouteID,
		BoardingCity: boardingCity,
		DropCity:     dropCity,
	}
	for _, p := range points {
		if p.City == boardingCity && p.IsBoardingPoint {
			result.BoardingPoints = append(result.BoardingPoints, p)
		}
		if p.City == dropCity && p.IsDropPoint {
			result.DropPoints = append(result.DropPoints, p)
		}
	}
	if len(result.BoardingPoints) == 0 {
		return nil, apperror.NotFound(apperror.CodeRoutePointNotFound, "no boarding points found for city %s", boardingCity)
	}
	if len(result.DropPoints) == 0 {
		return nil, apperror.NotFound(apperror.CodeRoutePointNotFound, "no drop points found for city %s", dropCity)
	}

	price, err := s.store.GetRoutePrice(ctx, trip.RouteID, result.BoardingPoints[0].ID, result.DropPoints[0].ID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodePriceNotFound, "price not configured for %s -> %s", boardingCity, dropCity)
	}
	result.PricePerSeat = price.Price
	return result, nil
}

// RegisterVehicle добавляет автомобиль водителю. Номер автомобиля уникален.
func (s *TripService) RegisterVehicle(ctx context.Context, actor Actor, driverID uint, req models.VehicleCreate) (*models.Vehicle, error) {
	if !actor.IsAdmin() || driverID == 0 {
		driverID = actor.UserID
	}
	if req.PassengerSeats <= 0 {
		return nil, apperror.Validation("passengerSeats: must be positive")
	}
	vehicle := &models.Vehicle{
		DriverID:       driverID,
		CarBrand:       req.CarBrand,
		CarModel:       req.CarModel,
		CarColor:       req.CarColor,
		CarNumber:      strings.ToUpper(strings.TrimSpace(req.CarNumber)),
		PassengerSeats: req.PassengerSeats,
	}
	if vehicle.CarNumber == "" {
		return nil, apperror.Validation("carNumber: is required")
	}
	if err := s.store.CreateVehicle(ctx, vehicle); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperror.Conflict(apperror.CodeVehicleExists, "vehicle %s is already registered", vehicle.CarNumber)
		}
		return nil, apperror.Internal(err, "create vehicle")
	}
	log.Printf("Автомобиль %d (%s) зарегистрирован водителем %d, мест: %d", vehicle.ID, vehicle.CarNumber, driverID, vehicle.PassengerSeats)
	return vehicle, nil
}

func (s *TripService) ListDriverVehicles(ctx context.Context, driverID uint) ([]models.Vehicle, error) {
	vehicles, err := s.store.ListVehiclesByDriver(ctx, driverID)
	if err != nil {
		return nil, apperror.Internal(err, "list vehicles of driver %d", driverID)
	}
	return vehicles, nil
}
