package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return NewGormStore(db), mock
}

func TestLockTripUsesRowLock(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "route_id", "available_seats", "booked_seats", "version", "status"}).
		AddRow(7, 3, 4, 0, 2, "SCHEDULED")
	mock.ExpectQuery(`SELECT \* FROM "trips" WHERE "trips"."id" = \$1 ORDER BY "trips"."id" LIMIT .*FOR UPDATE`).
		WillReturnRows(rows)

	trip, err := store.LockTrip(context.Background(), 7)
	if err != nil {
		t.Fatalf("LockTrip: %v", err)
	}
	if trip.AvailableSeats != 4 || trip.Version != 2 {
		t.Fatalf("unexpected trip: %+v", trip)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE "bookings"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetBooking(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateBookingStatusIsConditional(t *testing.T) {
	store, mock := newMockStore(t)
	booking := &models.Booking{ID: 5, Status: models.BookingStatusCancelled, CancelReason: "expired"}

	mock.ExpectExec(`UPDATE "bookings" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.UpdateBookingStatus(context.Background(), booking, models.BookingStatusPending); err != nil {
		t.Fatalf("first update: %v", err)
	}

	mock.ExpectExec(`UPDATE "bookings" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := store.UpdateBookingStatus(context.Background(), booking, models.BookingStatusPending)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when no row matched, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSetSeatAvailabilityBumpsVersion(t *testing.T) {
	store, mock := newMockStore(t)
	seat := &models.TripSeat{ID: 11, SeatNumber: "S2", IsAvailable: true, Version: 3}

	mock.ExpectExec(`UPDATE "trip_seats" SET .* WHERE id = \$\d+ AND version = \$\d+ AND is_available = \$\d+ AND is_driver_seat = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SetSeatAvailability(context.Background(), seat, false); err != nil {
		t.Fatalf("SetSeatAvailability: %v", err)
	}
	if seat.IsAvailable || seat.Version != 4 {
		t.Fatalf("seat not updated in memory: %+v", seat)
	}

	mock.ExpectExec(`UPDATE "trip_seats" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.SetSeatAvailability(context.Background(), seat, false); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale seat, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateTripSeatCountsChecksVersion(t *testing.T) {
	store, mock := newMockStore(t)
	trip := &models.Trip{ID: 2, AvailableSeats: 2, BookedSeats: 2, Version: 5}

	mock.ExpectExec(`UPDATE "trips" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.UpdateTripSeatCounts(context.Background(), trip); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if trip.Version != 5 {
		t.Fatalf("version must not change on conflict, got %d", trip.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReplaceRoutePricesDeletesThenInserts(t *testing.T) {
	store, mock := newMockStore(t)
	prices := []models.RoutePrice{
		{RouteID: 1, BoardingPointID: 1, DropPointID: 4, Price: 500},
		{RouteID: 1, BoardingPointID: 2, DropPointID: 4, Price: 500},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "route_prices" WHERE route_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`INSERT INTO "route_prices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectCommit()

	if err := store.ReplaceRoutePrices(context.Background(), 1, prices); err != nil {
		t.Fatalf("ReplaceRoutePrices: %v", err)
	}
	if prices[0].ID != 10 || prices[1].ID != 11 {
		t.Fatalf("ids not assigned: %+v", prices)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(tx Store) error {
		b := &models.Booking{ID: 1, Status: models.BookingStatusConfirmed}
		if err := tx.UpdateBookingStatus(context.Background(), b, models.BookingStatusPending); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCountBookingsByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("PENDING", 2).
		AddRow("CONFIRMED", 5).
		AddRow("CANCELLED", 1)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total FROM "bookings" WHERE user_id = \$1 GROUP BY`).
		WillReturnRows(rows)

	stats, err := store.CountBookingsByStatus(context.Background(), 9)
	if err != nil {
		t.Fatalf("CountBookingsByStatus: %v", err)
	}
	if stats.Pending != 2 || stats.Confirmed != 5 || stats.Cancelled != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListExpiredBookingsFiltersPending(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE status = \$1 AND expires_at < \$2 AND id > \$3 ORDER BY id ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(3, "PENDING"))

	bookings, err := store.ListExpiredBookings(context.Background(), now, 2, 50)
	if err != nil {
		t.Fatalf("ListExpiredBookings: %v", err)
	}
	if len(bookings) != 1 || bookings[0].ID != 3 {
		t.Fatalf("unexpected bookings: %+v", bookings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateFCMTokenUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "users" SET "fcm_token"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateFCMToken(context.Background(), 404, "device-token")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
