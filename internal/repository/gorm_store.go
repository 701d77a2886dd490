package repository

import (
	"context"
	"errors"
	"time"

	"carpool-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore реализация Store поверх PostgreSQL
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction выполняет fn в одной транзакции БД. Любая ошибка fn откатывает все изменения.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	return s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

func (s *GormStore) CreateRoute(ctx context.Context, route *models.Route) error {
	return translate(s.conn(ctx).Create(route).Error)
}

func (s *GormStore) GetRoute(ctx context.Context, id uint) (*models.Route, error) {
	var route models.Route
	err := s.conn(ctx).
		Preload("Points", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order ASC") }).
		First(&route, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

func (s *GormStore) ListRoutesByDriver(ctx context.Context, driverID uint) ([]models.Route, error) {
	var routes []models.Route
	err := s.conn(ctx).
		Where("driver_id = ? AND is_active = ?", driverID, true).
		Order("created_at DESC").
		Find(&routes).Error
	return routes, translate(err)
}

func (s *GormStore) ListRoutePoints(ctx context.Context, routeID uint) ([]models.RoutePoint, error) {
	var points []models.RoutePoint
	err := s.conn(ctx).
		Where("route_id = ?", routeID).
		Order("sequence_order ASC").
		Find(&points).Error
	return points, translate(err)
}

func (s *GormStore) GetRoutePoint(ctx context.Context, id uint) (*models.RoutePoint, error) {
	var point models.RoutePoint
	if err := s.conn(ctx).First(&point, id).Error; err != nil {
		return nil, translate(err)
	}
	return &point, nil
}

func (s *GormStore) FindRoutePoint(ctx context.Context, routeID uint, city, subLocation string) (*models.RoutePoint, error) {
	var point models.RoutePoint
	err := s.conn(ctx).
		Where("route_id = ? AND city = ? AND sub_location = ?", routeID, city, subLocation).
		First(&point).Error
	if err != nil {
		return nil, translate(err)
	}
	return &point, nil
}

// ReplaceRoutePrices удаляет все цены маршрута и записывает новые в одной транзакции
func (s *GormStore) ReplaceRoutePrices(ctx context.Context, routeID uint, prices []models.RoutePrice) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", routeID).Delete(&models.RoutePrice{}).Error; err != nil {
			return err
		}
		if len(prices) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).CreateInBatches(prices, 100).Error
	}))
}

func (s *GormStore) ListRoutePrices(ctx context.Context, routeID uint) ([]models.RoutePrice, error) {
	var prices []models.RoutePrice
	err := s.conn(ctx).
		Where("route_id = ?", routeID).
		Order("id ASC").
		Find(&prices).Error
	return prices, translate(err)
}

func (s *GormStore) GetRoutePrice(ctx context.Context, routeID, boardingPointID, dropPointID uint) (*models.RoutePrice, error) {
	var price models.RoutePrice
	err := s.conn(ctx).
		Where("route_id = ? AND boarding_point_id = ? AND drop_point_id = ?", routeID, boardingPointID, dropPointID).
		First(&price).Error
	if err != nil {
		return nil, translate(err)
	}
	return &price, nil
}

func (s *GormStore) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return translate(s.conn(ctx).Create(vehicle).Error)
}

func (s *GormStore) ListVehiclesByDriver(ctx context.Context, driverID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.conn(ctx).Where("driver_id = ?", driverID).Order("id ASC").Find(&vehicles).Error
	return vehicles, translate(err)
}

func (s *GormStore) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.conn(ctx).First(&vehicle, id).Error; err != nil {
		return nil, translate(err)
	}
	return &vehicle, nil
}

// CreateTrip сохраняет рейс вместе со всеми его местами
func (s *GormStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	return translate(s.conn(ctx).Create(trip).Error)
}

func (s *GormStore) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := s.conn(ctx).First(&trip, id).Error; err != nil {
		return nil, translate(err)
	}
	return &trip, nil
}

func (s *GormStore) LockTrip(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := s.forUpdate(ctx).First(&trip, id).Error; err != nil {
		return nil, translate(err)
	}
	return &trip, nil
}

func (s *GormStore) ListTripsByDriver(ctx context.Context, driverID uint) ([]models.Trip, error) {
	var trips []models.Trip
	err := s.conn(ctx).
		Where("driver_id = ?", driverID).
		Order("departure_time DESC").
		Find(&trips).Error
	return trips, translate(err)
}

// UpdateTripSeatCounts записывает счетчики мест с проверкой версии рейса
func (s *GormStore) UpdateTripSeatCounts(ctx context.Context, trip *models.Trip) error {
	res := s.conn(ctx).Model(&models.Trip{}).
		Where("id = ? AND version = ?", trip.ID, trip.Version).
		Updates(map[string]interface{}{
			"available_seats": trip.AvailableSeats,
			"booked_seats":    trip.BookedSeats,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	trip.Version++
	return nil
}

func (s *GormStore) ListTripSeats(ctx context.Context, tripID uint) ([]models.TripSeat, error) {
	var seats []models.TripSeat
	err := s.conn(ctx).
		Where("trip_id = ?", tripID).
		Order("id ASC").
		Find(&seats).Error
	return seats, translate(err)
}

// LockTripSeats блокирует запрошенные места в порядке номеров, чтобы параллельные брони не взаимоблокировались
func (s *GormStore) LockTripSeats(ctx context.Context, tripID uint, seatNumbers []string) ([]models.TripSeat, error) {
	var seats []models.TripSeat
	err := s.forUpdate(ctx).
		Where("trip_id = ? AND seat_number IN ?", tripID, seatNumbers).
		Order("seat_number ASC").
		Find(&seats).Error
	return seats, translate(err)
}

// SetSeatAvailability меняет флаг доступности места, если его версия и состояние не изменились
func (s *GormStore) SetSeatAvailability(ctx context.Context, seat *models.TripSeat, available bool) error {
	res := s.conn(ctx).Model(&models.TripSeat{}).
		Where("id = ? AND version = ? AND is_available = ? AND is_driver_seat = ?", seat.ID, seat.Version, !available, false).
		Updates(map[string]interface{}{
			"is_available": available,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	seat.IsAvailable = available
	seat.Version++
	return nil
}

func (s *GormStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return translate(s.conn(ctx).Create(booking).Error)
}

func (s *GormStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.conn(ctx).First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.conn(ctx).Where("booking_reference = ?", reference).First(&booking).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormStore) LockBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.forUpdate(ctx).First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// UpdateBookingStatus переводит бронирование в booking.Status, только если текущий статус равен from
func (s *GormStore) UpdateBookingStatus(ctx context.Context, booking *models.Booking, from models.BookingStatus) error {
	res := s.conn(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, from).
		Updates(map[string]interface{}{
			"status":        booking.Status,
			"cancel_reason": booking.CancelReason,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *GormStore) ListBookingsByUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, translate(err)
}

func (s *GormStore) ListBookingsByTrip(ctx context.Context, tripID uint, status models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	query := s.conn(ctx).Where("trip_id = ?", tripID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&bookings).Error
	return bookings, translate(err)
}

// CountBookingsByStatus считает бронирования по статусам. userID == 0 означает все бронирования.
func (s *GormStore) CountBookingsByStatus(ctx context.Context, userID uint) (models.BookingStats, error) {
	var rows []struct {
		Status models.BookingStatus
		Total  int64
	}
	query := s.conn(ctx).Model(&models.Booking{}).Select("status, COUNT(*) AS total")
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return models.BookingStats{}, translate(err)
	}

	var stats models.BookingStats
	for _, row := range rows {
		switch row.Status {
		case models.BookingStatusPending:
			stats.Pending = row.Total
		case models.BookingStatusConfirmed:
			stats.Confirmed = row.Total
		case models.BookingStatusCancelled:
			stats.Cancelled = row.Total
		}
	}
	return stats, nil
}

// ListExpiredBookings возвращает страницу ожидающих оплаты бронирований с истекшим сроком,
// id которых больше afterID
func (s *GormStore) ListExpiredBookings(ctx context.Context, now time.Time, afterID uint, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.conn(ctx).
		Where("status = ? AND expires_at < ? AND id > ?", models.BookingStatusPending, now, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, translate(err)
}

func (s *GormStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return translate(s.conn(ctx).Create(payment).Error)
}

func (s *GormStore) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.conn(ctx).First(&payment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormStore) LockPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.forUpdate(ctx).First(&payment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormStore) GetPaymentByBooking(ctx context.Context, bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.conn(ctx).Where("booking_id = ?", bookingID).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormStore) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.conn(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	return translate(s.conn(ctx).Save(payment).Error)
}

// FCMToken возвращает токен устройства пользователя для push-уведомлений
func (s *GormStore) FCMToken(ctx context.Context, userID uint) (string, error) {
	var user models.User
	err := s.conn(ctx).Select("id", "fcm_token").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return user.FCMToken, nil
}

// GetUser возвращает профиль пользователя
func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateFCMToken сохраняет токен устройства пользователя
func (s *GormStore) UpdateFCMToken(ctx context.Context, userID uint, token string) error {
	result := s.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", token)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
