package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/services/razorpay"
)

const (
	testDriverID   uint = 10
	testPassenger  uint = 20
	otherPassenger uint = 21
	testSecret          = "test_secret"
	testTotalSeats      = 4
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memCache кэш в памяти с той же сериализацией, что и RedisCache
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *memCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if raw, ok := c.data[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	c.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event BookingEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	mu      sync.Mutex
	secret  string
	err     error
	orders  int
	amounts []int64
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.orders++
	g.amounts = append(g.amounts, amount)
	id := fmt.Sprintf("order_%d", g.orders)
	return &razorpay.Order{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
		Raw:      fmt.Sprintf(`{"id":%q,"amount":%d}`, id, amount),
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return razorpay.VerifySignature(g.secret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type fixture struct {
	store    *memStore
	clock    *testClock
	cache    *memCache
	events   *recordingPublisher
	gateway  *fakeGateway
	routes   *RouteService
	trips    *TripService
	bookings *BookingService
	payments *PaymentService
	sweeper  *ExpirationReconciler

	route *models.Route
	trip  *models.Trip
}

// testRouteRequest маршрут A (2 остановки) -> B -> C
func testRouteRequest() models.RouteCreate {
	return models.RouteCreate{
		DriverID:          testDriverID,
		RouteName:         "A - C",
		TotalDistance:     120000,
		EstimatedDuration: 150,
		Cities: []models.CityRouteInput{
			{
				City: "C", SequenceOrder: 3, IsDropPoint: true,
				Points: []models.StopPointInput{{SubLocation: "Station", Address: "C station", DistanceFromStart: 120000, TimeFromStart: 150}},
			},
			{
				City: "A", SequenceOrder: 1, IsBoardingPoint: true,
				Points: []models.StopPointInput{
					{SubLocation: "North", Address: "A north", DistanceFromStart: 2000, TimeFromStart: 10},
					{SubLocation: "Central", Address: "A central", DistanceFromStart: 0, TimeFromStart: 0},
				},
			},
			{
				City: "B", SequenceOrder: 2, IsBoardingPoint: true, IsDropPoint: true,
				Points: []models.StopPointInput{{SubLocation: "Mall", Address: "B mall", DistanceFromStart: 50000, TimeFromStart: 60}},
			},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:   newMemStore(),
		clock:   newTestClock(),
		cache:   newMemCache(),
		events:  &recordingPublisher{},
		gateway: &fakeGateway{secret: testSecret},
	}
	f.routes = NewRouteService(f.store, f.cache)
	f.trips = NewTripService(f.store)
	f.trips.now = f.clock.Now
	f.bookings = NewBookingService(f.store, f.events, 15*time.Minute)
	f.bookings.now = f.clock.Now
	f.payments = NewPaymentService(f.store, f.bookings, f.gateway, "INR")
	f.payments.now = f.clock.Now
	f.sweeper = NewExpirationReconciler(f.store, f.bookings, time.Minute, 100, nil)
	f.sweeper.now = f.clock.Now

	route, err := f.routes.CreateRoute(ctx, testRouteRequest())
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	f.route = route

	if _, err := f.routes.SetRoutePrices(ctx, route.ID, []models.CityPriceInput{
		{BoardingCity: "A", DropCity: "C", Price: 500},
	}); err != nil {
		t.Fatalf("set prices: %v", err)
	}

	vehicle := f.store.seedVehicle(testDriverID, testTotalSeats)
	trip, err := f.trips.ScheduleTrip(ctx, Actor{UserID: testDriverID, Role: models.RoleDriver}, models.TripCreate{
		RouteID:       route.ID,
		VehicleID:     vehicle.ID,
		DepartureTime: f.clock.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("schedule trip: %v", err)
	}
	f.trip = trip
	return f
}

func passenger(id uint) Actor {
	return Actor{UserID: id, Role: models.RoleUser}
}

func (f *fixture) bookingRequest(seats ...string) models.BookingCreate {
	return models.BookingCreate{
		TripID:              f.trip.ID,
		BoardingCity:        "A",
		BoardingSubLocation: "Central",
		DropCity:            "C",
		DropSubLocation:     "Station",
		SeatNumbers:         seats,
	}
}

func (f *fixture) book(t *testing.T, userID uint, seats ...string) *models.Booking {
	t.Helper()
	booking, err := f.bookings.CreateBooking(context.Background(), passenger(userID), f.bookingRequest(seats...))
	if err != nil {
		t.Fatalf("create booking %v: %v", seats, err)
	}
	return booking
}

func (f *fixture) currentTrip(t *testing.T) *models.Trip {
	t.Helper()
	trip, err := f.store.GetTrip(context.Background(), f.trip.ID)
	if err != nil {
		t.Fatalf("load trip: %v", err)
	}
	return trip
}

func (f *fixture) currentBooking(t *testing.T, id uint) *models.Booking {
	t.Helper()
	booking, err := f.store.GetBooking(context.Background(), id)
	if err != nil {
		t.Fatalf("load booking %d: %v", id, err)
	}
	return booking
}

func (f *fixture) checkInvariants(t *testing.T) {
	t.Helper()
	f.store.checkTripInvariants(t, f.trip.ID, testTotalSeats)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperror.HasCode(err, code) {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

var errInjected = errors.New("injected failure")
