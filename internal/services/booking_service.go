package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/metrics"
	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"

	"github.com/google/uuid"
)

// BookingService управляет жизненным циклом бронирования:
// PENDING -> CONFIRMED или PENDING -> CANCELLED. Оба конечных состояния терминальные.
type BookingService struct {
	store  repository.Store
	events EventPublisher
	hold   time.Duration
	now    func() time.Time
}

func NewBookingService(store repository.Store, events EventPublisher, hold time.Duration) *BookingService {
	return &BookingService{
		store:  store,
		events: events,
		hold:   hold,
		now:    time.Now,
	}
}

// NewBookingReference формирует читаемый уникальный номер бронирования
func NewBookingReference(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "BK" + at.Format("20060102150405") + suffix
}

func normalizeSeatNumbers(seatNumbers []string) ([]string, error) {
	if len(seatNumbers) == 0 {
		return nil, apperror.Validation("seatNumbers: at least one seat is required")
	}
	seen := make(map[string]bool, len(seatNumbers))
	result := make([]string, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			return nil, apperror.Validation("seatNumbers: empty seat number")
		}
		if seen[n] {
			return nil, apperror.Validation("seatNumbers: seat %s requested twice", n)
		}
		seen[n] = true
		result = append(result, n)
	}
	return result, nil
}

// resolvePoint находит точку маршрута по идентификатору или по паре город/остановка
func resolvePoint(ctx context.Context, tx repository.Store, routeID, pointID uint, city, subLocation, role string) (*models.RoutePoint, error) {
	var (
		point *models.RoutePoint
		err   error
	)
	switch {
	case pointID != 0:
		point, err = tx.GetRoutePoint(ctx, pointID)
		if err == nil && point.RouteID != routeID {
			err = repository.ErrNotFound
		}
	case city != "" && subLocation != "":
		point, err = tx.FindRoutePoint(ctx, routeID, city, subLocation)
	default:
		return nil, apperror.Validation("%s point: id or city with sub-location is required", role)
	}
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeRoutePointNotFound, "%s point not found on route %d", role, routeID)
	}
	return point, nil
}

// CreateBooking резервирует места рейса по цене из матрицы маршрута.
// Все изменения мест, счетчиков рейса и запись бронирования выполняются в одной транзакции.
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, req models.BookingCreate) (*models.Booking, error) {
	seatNumbers, err := normalizeSeatNumbers(req.SeatNumbers)
	if err != nil {
		return nil, err
	}
	if len(req.PassengerNames) > len(seatNumbers) {
		return nil, apperror.Validation("passengerNames: %d names for %d seats", len(req.PassengerNames), len(seatNumbers))
	}

	now := s.now()
	var (
		booking  *models.Booking
		driverID uint
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		trip, err := tx.LockTrip(ctx, req.TripID)
		if err != nil {
			return notFoundOr(err, apperror.CodeTripNotFound, "trip %d not found", req.TripID)
		}
		driverID = trip.DriverID
		if trip.Status != models.TripStatusScheduled {
			return apperror.State(apperror.CodeTripNotAvailable, "trip %d is %s and does not accept bookings", trip.ID, trip.Status)
		}
		if trip.DriverID == actor.UserID {
			return apperror.Validation("driver cannot book seats on own trip %d", trip.ID)
		}
		if len(seatNumbers) > trip.AvailableSeats {
			return apperror.State(apperror.CodeNotEnoughSeats, "requested %d seats, only %d available", len(seatNumbers), trip.AvailableSeats)
		}

		boarding, err := resolvePoint(ctx, tx, trip.RouteID, req.BoardingPointID, req.BoardingCity, req.BoardingSubLocation, "boarding")
		if err != nil {
			return err
		}
		drop, err := resolvePoint(ctx, tx, trip.RouteID, req.DropPointID, req.DropCity, req.DropSubLocation, "drop")
		if err != nil {
			return err
		}
		if !boarding.IsBoardingPoint {
			return apperror.Validation("point %q is not a boarding point", boarding.PointName)
		}
		if !drop.IsDropPoint {
			return apperror.Validation("point %q is not a drop point", drop.PointName)
		}
		if boarding.SequenceOrder >= drop.SequenceOrder {
			return apperror.ValidationCode(apperror.CodeInvalidRoute, "boarding point %q must come before drop point %q", boarding.PointName, drop.PointName)
		}

		price, err := tx.GetRoutePrice(ctx, trip.RouteID, boarding.ID, drop.ID)
		if err != nil {
			return notFoundOr(err, apperror.CodePriceNotFound, "price not configured for %q -> %q", boarding.PointName, drop.PointName)
		}

		seats, err := tx.LockTripSeats(ctx, trip.ID, seatNumbers)
		if err != nil {
			return apperror.Internal(err, "lock seats of trip %d", trip.ID)
		}
		byNumber := make(map[string]*models.TripSeat, len(seats))
		for i := range seats {
			byNumber[seats[i].SeatNumber] = &seats[i]
		}
		for _, n := range seatNumbers {
			seat, ok := byNumber[n]
			switch {
			case !ok:
				return apperror.NotFound(apperror.CodeSeatNotFound, "seat %s does not exist on trip %d", n, trip.ID)
			case seat.IsDriverSeat:
				return apperror.Validation("seat %s is the driver seat", n)
			case !seat.IsAvailable:
				return apperror.Conflict(apperror.CodeSeatAlreadyBooked, "seat %s is already booked", n)
			}
		}
		for _, n := range seatNumbers {
			if err := tx.SetSeatAvailability(ctx, byNumber[n], false); err != nil {
				return seatConflict(err, n)
			}
		}

		trip.AvailableSeats -= len(seatNumbers)
		trip.BookedSeats += len(seatNumbers)
		if err := tx.UpdateTripSeatCounts(ctx, trip); err != nil {
			return seatConflict(err, strings.Join(seatNumbers, ","))
		}

		booking = &models.Booking{
			BookingReference:  NewBookingReference(now),
			UserID:            actor.UserID,
			TripID:            trip.ID,
			BoardingPointID:   boarding.ID,
			DropPointID:       drop.ID,
			SeatNumbers:       seatNumbers,
			NumberOfSeats:     len(seatNumbers),
			TotalAmount:       price.Price * float64(len(seatNumbers)),
			Distance:          drop.DistanceFromStart - boarding.DistanceFromStart,
			PassengerNames:    req.PassengerNames,
			PassengerContacts: req.PassengerContacts,
			Status:            models.BookingStatusPending,
			ExpiresAt:         now.Add(s.hold),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return apperror.Internal(err, "create booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	log.Printf("Бронирование %d (%s) создано: рейс %d, места %v, сумма %.2f, оплатить до %s",
		booking.ID, booking.BookingReference, booking.TripID, []string(booking.SeatNumbers), booking.TotalAmount, booking.ExpiresAt.Format(time.RFC3339))
	s.publish(ctx, EventBookingCreated, booking, driverID)
	return booking, nil
}

func seatConflict(err error, seats string) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperror.Conflict(apperror.CodeSeatAlreadyBooked, "seat %s was booked concurrently", seats)
	}
	return apperror.Internal(err, "update seats %s", seats)
}

// ConfirmBooking подтверждает бронирование. Повторное подтверждение ничего не меняет.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var (
		booking *models.Booking
		changed bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		booking, changed, err = s.confirmInTx(ctx, tx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterConfirm(ctx, booking)
	}
	return booking, nil
}

func (s *BookingService) confirmInTx(ctx context.Context, tx repository.Store, bookingID uint) (*models.Booking, bool, error) {
	booking, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, false, notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", bookingID)
	}
	switch booking.Status {
	case models.BookingStatusConfirmed:
		return booking, false, nil
	case models.BookingStatusCancelled:
		return nil, false, apperror.State(apperror.CodeBookingNotPending, "booking %s is cancelled and cannot be confirmed", booking.BookingReference)
	}

	booking.Status = models.BookingStatusConfirmed
	if err := tx.UpdateBookingStatus(ctx, booking, models.BookingStatusPending); err != nil {
		return nil, false, statusConflict(err, booking)
	}
	return booking, true, nil
}

func (s *BookingService) afterConfirm(ctx context.Context, booking *models.Booking) {
	metrics.BookingsConfirmed.Inc()
	log.Printf("Бронирование %d (%s) подтверждено", booking.ID, booking.BookingReference)
	s.publish(ctx, EventBookingConfirmed, booking, 0)
}

// CancelBooking отменяет бронирование по запросу пользователя.
// Отменить можно только ожидающее оплаты бронирование.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, bookingID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", bookingID)
		}
		if err := actor.requireOwner(current.UserID, "booking"); err != nil {
			return err
		}
		switch current.Status {
		case models.BookingStatusCancelled:
			return apperror.Conflict(apperror.CodeBookingCancelled, "booking %s is already cancelled", current.BookingReference)
		case models.BookingStatusConfirmed:
			return apperror.State(apperror.CodeBookingNotPending, "booking %s is confirmed and cannot be cancelled", current.BookingReference)
		}
		booking = current
		return s.releaseInTx(ctx, tx, booking, CancelReasonUser)
	})
	if err != nil {
		return nil, err
	}
	s.afterCancel(ctx, booking)
	return booking, nil
}

// ExpireBooking отменяет просроченное бронирование. Если бронирование уже не ожидает оплаты
// или срок еще не вышел, возвращает false без изменений.
func (s *BookingService) ExpireBooking(ctx context.Context, bookingID uint) (bool, error) {
	var booking *models.Booking
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", bookingID)
		}
		if current.Status != models.BookingStatusPending || !current.ExpiresAt.Before(s.now()) {
			return nil
		}
		booking = current
		return s.releaseInTx(ctx, tx, booking, CancelReasonExpired)
	})
	if err != nil || booking == nil {
		return false, err
	}
	s.afterCancel(ctx, booking)
	return true, nil
}

// cancelPendingInTx отменяет бронирование, если оно еще ожидает оплаты
func (s *BookingService) cancelPendingInTx(ctx context.Context, tx repository.Store, bookingID uint, reason string) (*models.Booking, error) {
	booking, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", bookingID)
	}
	if booking.Status != models.BookingStatusPending {
		return nil, nil
	}
	if err := s.releaseInTx(ctx, tx, booking, reason); err != nil {
		return nil, err
	}
	return booking, nil
}

// releaseInTx освобождает места бронирования, возвращает их в счетчики рейса и ставит статус CANCELLED.
// Бронирование должно быть заблокировано вызывающим и находиться в PENDING.
func (s *BookingService) releaseInTx(ctx context.Context, tx repository.Store, booking *models.Booking, reason string) error {
	trip, err := tx.LockTrip(ctx, booking.TripID)
	if err != nil {
		return notFoundOr(err, apperror.CodeTripNotFound, "trip %d not found", booking.TripID)
	}
	seats, err := tx.LockTripSeats(ctx, trip.ID, booking.SeatNumbers)
	if err != nil {
		return apperror.Internal(err, "lock seats of trip %d", trip.ID)
	}

	released := 0
	for i := range seats {
		seat := &seats[i]
		if seat.IsDriverSeat || seat.IsAvailable {
			log.Printf("Место %s рейса %d уже свободно при отмене бронирования %d", seat.SeatNumber, trip.ID, booking.ID)
			continue
		}
		if err := tx.SetSeatAvailability(ctx, seat, true); err != nil {
			return apperror.Internal(err, "release seat %s", seat.SeatNumber)
		}
		released++
	}
	if released != len(booking.SeatNumbers) {
		log.Printf("Бронирование %d: освобождено %d мест из %d", booking.ID, released, len(booking.SeatNumbers))
	}

	trip.AvailableSeats += released
	trip.BookedSeats -= released
	if err := tx.UpdateTripSeatCounts(ctx, trip); err != nil {
		return apperror.Internal(err, "update seat counts of trip %d", trip.ID)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelReason = reason
	if err := tx.UpdateBookingStatus(ctx, booking, models.BookingStatusPending); err != nil {
		return statusConflict(err, booking)
	}
	return nil
}

func (s *BookingService) afterCancel(ctx context.Context, booking *models.Booking) {
	metrics.BookingsCancelled.WithLabelValues(booking.CancelReason).Inc()
	log.Printf("Бронирование %d (%s) отменено: %s, места %v освобождены",
		booking.ID, booking.BookingReference, booking.CancelReason, []string(booking.SeatNumbers))
	s.publish(ctx, EventBookingCancelled, booking, 0)
}

func statusConflict(err error, booking *models.Booking) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperror.State(apperror.CodeBookingNotPending, "booking %s changed status concurrently", booking.BookingReference)
	}
	return apperror.Internal(err, "update status of booking %d", booking.ID)
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *models.Booking, driverID uint) {
	if s.events == nil {
		return
	}
	if driverID == 0 {
		if trip, err := s.store.GetTrip(ctx, booking.TripID); err == nil {
			driverID = trip.DriverID
		}
	}
	if err := s.events.Publish(ctx, newBookingEvent(eventType, booking, driverID, s.now())); err != nil {
		log.Printf("Ошибка публикации события %s: %v", eventType, err)
	}
}

// GetBooking возвращает бронирование, доступное владельцу, водителю рейса или администратору
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", id)
	}
	if err := s.authorizeView(ctx, actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) GetBookingByReference(ctx context.Context, actor Actor, reference string) (*models.Booking, error) {
	booking, err := s.store.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeBookingNotFound, "booking %s not found", reference)
	}
	if err := s.authorizeView(ctx, actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) authorizeView(ctx context.Context, actor Actor, booking *models.Booking) error {
	if actor.CanAccess(booking.UserID) {
		return nil
	}
	trip, err := s.store.GetTrip(ctx, booking.TripID)
	if err == nil && trip.DriverID == actor.UserID {
		return nil
	}
	return apperror.Forbidden("booking %s belongs to another user", booking.BookingReference)
}

// ListUserBookings возвращает бронирования пользователя, новые первыми
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint) ([]models.Booking, error) {
	bookings, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "list bookings of user %d", userID)
	}
	return bookings, nil
}

// ListTripBookings возвращает бронирования рейса, при необходимости только с указанным статусом
func (s *BookingService) ListTripBookings(ctx context.Context, actor Actor, tripID uint, status models.BookingStatus) ([]models.Booking, error) {
	switch status {
	case "", models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusCancelled:
	default:
		return nil, apperror.Validation("status: unknown booking status %q", status)
	}
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeTripNotFound, "trip %d not found", tripID)
	}
	if err := actor.requireOwner(trip.DriverID, fmt.Sprintf("trip %d", tripID)); err != nil {
		return nil, err
	}
	bookings, err := s.store.ListBookingsByTrip(ctx, tripID, status)
	if err != nil {
		return nil, apperror.Internal(err, "list bookings of trip %d", tripID)
	}
	return bookings, nil
}

// GetStats считает бронирования по статусам. Администратор видит все бронирования.
func (s *BookingService) GetStats(ctx context.Context, actor Actor) (models.BookingStats, error) {
	userID := actor.UserID
	if actor.IsAdmin() {
		userID = 0
	}
	stats, err := s.store.CountBookingsByStatus(ctx, userID)
	if err != nil {
		return models.BookingStats{}, apperror.Internal(err, "count bookings")
	}
	return stats, nil
}
