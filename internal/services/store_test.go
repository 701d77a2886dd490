package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"
)

// memStore хранилище в памяти для тестов сервисов. Транзакция держит общий мьютекс
// и при ошибке восстанавливает снимок данных.
type memStore struct {
	sh   *memShared
	inTx bool
}

type memShared struct {
	mu   sync.Mutex
	data memData

	failOn         map[string]error
	lockBookingErr map[uint]error
}

type memData struct {
	nextID   uint
	routes   map[uint]models.Route
	points   map[uint]models.RoutePoint
	prices   []models.RoutePrice
	vehicles map[uint]models.Vehicle
	trips    map[uint]models.Trip
	seats    map[uint]models.TripSeat
	bookings map[uint]models.Booking
	payments map[uint]models.Payment
}

func newMemStore() *memStore {
	return &memStore{sh: &memShared{
		data: memData{
			routes:   map[uint]models.Route{},
			points:   map[uint]models.RoutePoint{},
			vehicles: map[uint]models.Vehicle{},
			trips:    map[uint]models.Trip{},
			seats:    map[uint]models.TripSeat{},
			bookings: map[uint]models.Booking{},
			payments: map[uint]models.Payment{},
		},
		failOn:         map[string]error{},
		lockBookingErr: map[uint]error{},
	}}
}

func (d memData) clone() memData {
	c := d
	c.routes = make(map[uint]models.Route, len(d.routes))
	for k, v := range d.routes {
		c.routes[k] = v
	}
	c.points = make(map[uint]models.RoutePoint, len(d.points))
	for k, v := range d.points {
		c.points[k] = v
	}
	c.prices = append([]models.RoutePrice(nil), d.prices...)
	c.vehicles = make(map[uint]models.Vehicle, len(d.vehicles))
	for k, v := range d.vehicles {
		c.vehicles[k] = v
	}
	c.trips = make(map[uint]models.Trip, len(d.trips))
	for k, v := range d.trips {
		c.trips[k] = v
	}
	c.seats = make(map[uint]models.TripSeat, len(d.seats))
	for k, v := range d.seats {
		c.seats[k] = v
	}
	c.bookings = make(map[uint]models.Booking, len(d.bookings))
	for k, v := range d.bookings {
		c.bookings[k] = cloneBooking(v)
	}
	c.payments = make(map[uint]models.Payment, len(d.payments))
	for k, v := range d.payments {
		c.payments[k] = v
	}
	return c
}

func cloneBooking(b models.Booking) models.Booking {
	b.SeatNumbers = append([]string(nil), b.SeatNumbers...)
	b.PassengerNames = append([]string(nil), b.PassengerNames...)
	b.PassengerContacts = append([]string(nil), b.PassengerContacts...)
	return b
}

func (s *memStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.sh.mu.Lock()
	return s.sh.mu.Unlock
}

func (s *memStore) fail(method string) error {
	return s.sh.failOn[method]
}

func (s *memStore) id() uint {
	s.sh.data.nextID++
	return s.sh.data.nextID
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.data.clone()
	if err := fn(&memStore{sh: s.sh, inTx: true}); err != nil {
		s.sh.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) CreateRoute(ctx context.Context, route *models.Route) error {
	defer s.lock()()
	if err := s.fail("CreateRoute"); err != nil {
		return err
	}
	route.ID = s.id()
	for i := range route.Points {
		route.Points[i].ID = s.id()
		route.Points[i].RouteID = route.ID
		s.sh.data.points[route.Points[i].ID] = route.Points[i]
	}
	stored := *route
	stored.Points = nil
	s.sh.data.routes[route.ID] = stored
	return nil
}

func (s *memStore) GetRoute(ctx context.Context, id uint) (*models.Route, error) {
	defer s.lock()()
	route, ok := s.sh.data.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	route.Points = s.routePoints(id)
	return &route, nil
}

func (s *memStore) routePoints(routeID uint) []models.RoutePoint {
	var points []models.RoutePoint
	for _, p := range s.sh.data.points {
		if p.RouteID == routeID {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].SequenceOrder < points[j].SequenceOrder })
	return points
}

func (s *memStore) ListRoutesByDriver(ctx context.Context, driverID uint) ([]models.Route, error) {
	defer s.lock()()
	var routes []models.Route
	for _, r := range s.sh.data.routes {
		if r.DriverID == driverID {
			routes = append(routes, r)
		}
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID > routes[j].ID })
	return routes, nil
}

func (s *memStore) ListRoutePoints(ctx context.Context, routeID uint) ([]models.RoutePoint, error) {
	defer s.lock()()
	return s.routePoints(routeID), nil
}

func (s *memStore) GetRoutePoint(ctx context.Context, id uint) (*models.RoutePoint, error) {
	defer s.lock()()
	p, ok := s.sh.data.points[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) FindRoutePoint(ctx context.Context, routeID uint, city, subLocation string) (*models.RoutePoint, error) {
	defer s.lock()()
	for _, p := range s.routePoints(routeID) {
		if p.City == city && p.SubLocation == subLocation {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ReplaceRoutePrices(ctx context.Context, routeID uint, prices []models.RoutePrice) error {
	defer s.lock()()
	if err := s.fail("ReplaceRoutePrices"); err != nil {
		return err
	}
	kept := s.sh.data.prices[:0:0]
	for _, p := range s.sh.data.prices {
		if p.RouteID != routeID {
			kept = append(kept, p)
		}
	}
	for i := range prices {
		prices[i].ID = s.id()
		kept = append(kept, prices[i])
	}
	s.sh.data.prices = kept
	return nil
}

func (s *memStore) ListRoutePrices(ctx context.Context, routeID uint) ([]models.RoutePrice, error) {
	defer s.lock()()
	var prices []models.RoutePrice
	for _, p := range s.sh.data.prices {
		if p.RouteID == routeID {
			prices = append(prices, p)
		}
	}
	return prices, nil
}

func (s *memStore) GetRoutePrice(ctx context.Context, routeID, boardingPointID, dropPointID uint) (*models.RoutePrice, error) {
	defer s.lock()()
	for _, p := range s.sh.data.prices {
		if p.RouteID == routeID && p.BoardingPointID == boardingPointID && p.DropPointID == dropPointID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	defer s.lock()()
	for _, v := range s.sh.data.vehicles {
		if v.CarNumber == vehicle.CarNumber {
			return repository.ErrConflict
		}
	}
	vehicle.ID = s.id()
	s.sh.data.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (s *memStore) ListVehiclesByDriver(ctx context.Context, driverID uint) ([]models.Vehicle, error) {
	defer s.lock()()
	var vehicles []models.Vehicle
	for _, v := range s.sh.data.vehicles {
		if v.DriverID == driverID {
			vehicles = append(vehicles, v)
		}
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}

func (s *memStore) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	defer s.lock()()
	v, ok := s.sh.data.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (s *memStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	defer s.lock()()
	if err := s.fail("CreateTrip"); err != nil {
		return err
	}
	trip.ID = s.id()
	for i := range trip.Seats {
		trip.Seats[i].ID = s.id()
		trip.Seats[i].TripID = trip.ID
		s.sh.data.seats[trip.Seats[i].ID] = trip.Seats[i]
	}
	stored := *trip
	stored.Seats = nil
	s.sh.data.trips[trip.ID] = stored
	return nil
}

func (s *memStore) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	defer s.lock()()
	t, ok := s.sh.data.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) LockTrip(ctx context.Context, id uint) (*models.Trip, error) {
	return s.GetTrip(ctx, id)
}

func (s *memStore) ListTripsByDriver(ctx context.Context, driverID uint) ([]models.Trip, error) {
	defer s.lock()()
	var trips []models.Trip
	for _, t := range s.sh.data.trips {
		if t.DriverID == driverID {
			trips = append(trips, t)
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].DepartureTime.After(trips[j].DepartureTime) })
	return trips, nil
}

func (s *memStore) UpdateTripSeatCounts(ctx context.Context, trip *models.Trip) error {
	defer s.lock()()
	stored, ok := s.sh.data.trips[trip.ID]
	if !ok || stored.Version != trip.Version {
		return repository.ErrConflict
	}
	stored.AvailableSeats = trip.AvailableSeats
	stored.BookedSeats = trip.BookedSeats
	stored.Version++
	s.sh.data.trips[trip.ID] = stored
	trip.Version++
	return nil
}

func (s *memStore) tripSeats(tripID uint) []models.TripSeat {
	var seats []models.TripSeat
	for _, seat := range s.sh.data.seats {
		if seat.TripID == tripID {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	return seats
}

func (s *memStore) ListTripSeats(ctx context.Context, tripID uint) ([]models.TripSeat, error) {
	defer s.lock()()
	return s.tripSeats(tripID), nil
}

func (s *memStore) LockTripSeats(ctx context.Context, tripID uint, seatNumbers []string) ([]models.TripSeat, error) {
	defer s.lock()()
	wanted := make(map[string]bool, len(seatNumbers))
	for _, n := range seatNumbers {
		wanted[n] = true
	}
	var seats []models.TripSeat
	for _, seat := range s.tripSeats(tripID) {
		if wanted[seat.SeatNumber] {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNumber < seats[j].SeatNumber })
	return seats, nil
}

func (s *memStore) SetSeatAvailability(ctx context.Context, seat *models.TripSeat, available bool) error {
	defer s.lock()()
	stored, ok := s.sh.data.seats[seat.ID]
	if !ok || stored.Version != seat.Version || stored.IsAvailable == available || stored.IsDriverSeat {
		return repository.ErrConflict
	}
	stored.IsAvailable = available
	stored.Version++
	s.sh.data.seats[seat.ID] = stored
	seat.IsAvailable = available
	seat.Version++
	return nil
}

func (s *memStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	defer s.lock()()
	if err := s.fail("CreateBooking"); err != nil {
		return err
	}
	for _, b := range s.sh.data.bookings {
		if b.BookingReference == booking.BookingReference {
			return repository.ErrConflict
		}
	}
	booking.ID = s.id()
	s.sh.data.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

func (s *memStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	defer s.lock()()
	b, ok := s.sh.data.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

func (s *memStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	defer s.lock()()
	for _, b := range s.sh.data.bookings {
		if b.BookingReference == reference {
			b = cloneBooking(b)
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) LockBooking(ctx context.Context, id uint) (*models.Booking, error) {
	if err := s.sh.lockBookingErr[id]; err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, id)
}

func (s *memStore) UpdateBookingStatus(ctx context.Context, booking *models.Booking, from models.BookingStatus) error {
	defer s.lock()()
	stored, ok := s.sh.data.bookings[booking.ID]
	if !ok || stored.Status != from {
		return repository.ErrConflict
	}
	stored.Status = booking.Status
	stored.CancelReason = booking.CancelReason
	s.sh.data.bookings[booking.ID] = stored
	return nil
}

func (s *memStore) ListBookingsByUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	defer s.lock()()
	var bookings []models.Booking
	for _, b := range s.sh.data.bookings {
		if b.UserID == userID {
			bookings = append(bookings, cloneBooking(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *memStore) ListBookingsByTrip(ctx context.Context, tripID uint, status models.BookingStatus) ([]models.Booking, error) {
	defer s.lock()()
	var bookings []models.Booking
	for _, b := range s.sh.data.bookings {
		if b.TripID == tripID && (status == "" || b.Status == status) {
			bookings = append(bookings, cloneBooking(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID > bookings[j].ID })
	return bookings, nil
}

func (s *memStore) CountBookingsByStatus(ctx context.Context, userID uint) (models.BookingStats, error) {
	defer s.lock()()
	var stats models.BookingStats
	for _, b := range s.sh.data.bookings {
		if userID != 0 && b.UserID != userID {
			continue
		}
		switch b.Status {
		case models.BookingStatusPending:
			stats.Pending++
		case models.BookingStatusConfirmed:
			stats.Confirmed++
		case models.BookingStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (s *memStore) ListExpiredBookings(ctx context.Context, now time.Time, afterID uint, limit int) ([]models.Booking, error) {
	defer s.lock()()
	if err := s.fail("ListExpiredBookings"); err != nil {
		return nil, err
	}
	var bookings []models.Booking
	for _, b := range s.sh.data.bookings {
		if b.Status == models.BookingStatusPending && b.ExpiresAt.Before(now) && b.ID > afterID {
			bookings = append(bookings, cloneBooking(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (s *memStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	defer s.lock()()
	for _, p := range s.sh.data.payments {
		if p.BookingID == payment.BookingID {
			return repository.ErrConflict
		}
	}
	payment.ID = s.id()
	s.sh.data.payments[payment.ID] = *payment
	return nil
}

func (s *memStore) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	defer s.lock()()
	p, ok := s.sh.data.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) LockPayment(ctx context.Context, id uint) (*models.Payment, error) {
	return s.GetPayment(ctx, id)
}

func (s *memStore) GetPaymentByBooking(ctx context.Context, bookingID uint) (*models.Payment, error) {
	defer s.lock()()
	for _, p := range s.sh.data.payments {
		if p.BookingID == bookingID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	defer s.lock()()
	for _, p := range s.sh.data.payments {
		if p.TransactionID == transactionID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	defer s.lock()()
	if _, ok := s.sh.data.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	s.sh.data.payments[payment.ID] = *payment
	return nil
}

func (s *memStore) seedVehicle(driverID uint, seats int) models.Vehicle {
	defer s.lock()()
	id := s.id()
	v := models.Vehicle{ID: id, DriverID: driverID, CarBrand: "Toyota", CarModel: "Innova", CarNumber: fmt.Sprintf("KA%02d", id), PassengerSeats: seats}
	s.sh.data.vehicles[v.ID] = v
	return v
}

// checkTripInvariants проверяет согласованность счетчиков рейса и флагов мест
func (s *memStore) checkTripInvariants(t *testing.T, tripID uint, total int) {
	t.Helper()
	defer s.lock()()
	trip := s.sh.data.trips[tripID]
	if trip.AvailableSeats+trip.BookedSeats != total {
		t.Fatalf("available %d + booked %d != %d", trip.AvailableSeats, trip.BookedSeats, total)
	}
	unavailable, driverSeats := 0, 0
	for _, seat := range s.tripSeats(tripID) {
		if seat.IsDriverSeat {
			driverSeats++
			if seat.IsAvailable {
				t.Fatal("driver seat must never be available")
			}
			continue
		}
		if !seat.IsAvailable {
			unavailable++
		}
	}
	if driverSeats != 1 {
		t.Fatalf("expected exactly one driver seat, got %d", driverSeats)
	}
	if unavailable != trip.BookedSeats {
		t.Fatalf("unavailable seats %d != booked seats %d", unavailable, trip.BookedSeats)
	}
}

func (s *memStore) seatAvailable(tripID uint, number string) bool {
	defer s.lock()()
	for _, seat := range s.tripSeats(tripID) {
		if seat.SeatNumber == number {
			return seat.IsAvailable
		}
	}
	return false
}

var _ repository.Store = (*memStore)(nil)
