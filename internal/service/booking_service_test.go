package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
	"github.com/iliyamo/carpool-marketplace/internal/utils"
)

const (
	driverID    = uint64(1)
	passengerID = uint64(9)
	tripID      = uint64(7)
	bookingID   = uint64(11)
)

var (
	driver    = model.Principal{UserID: driverID, Role: model.RoleDriver}
	passenger = model.Principal{UserID: passengerID, Role: model.RolePassenger}
)

func newCoordinator(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewBookingService(
		repository.NewTripRepo(db),
		repository.NewBookingRepo(db),
		repository.NewUserRepo(db),
		nil, // no broker in tests
		4,   // cheapest bcrypt cost
	)
	return svc, mock
}

var tripCols = []string{
	"id", "driver_id", "vehicle_id",
	"origin_lat", "origin_lng", "origin_address",
	"dest_lat", "dest_lng", "dest_address",
	"start_time", "end_time", "total_seats", "available_seats",
	"price_per_seat_cents", "status", "route_geom", "created_at", "updated_at",
}

var bookingCols = []string{
	"id", "trip_id", "passenger_id", "seats",
	"pickup_lat", "pickup_lng", "pickup_address",
	"dropoff_lat", "dropoff_lng", "dropoff_address",
	"total_price_cents", "status", "payment_status", "pickup_code_hash",
	"notes", "baggage_count", "driver_rating", "passenger_rating",
	"reviewed_by_passenger", "reviewed_by_driver",
	"cancel_reason", "actual_dropoff_at", "created_at", "updated_at",
}

func tripRows(available uint32, start time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(tripCols).AddRow(
		tripID, driverID, 2,
		35.7, 51.4, "Tehran, Azadi Sq",
		35.8, 50.9, "Karaj, Central Terminal",
		start, start.Add(time.Hour), 3, available,
		150000, string(model.TripScheduled), nil, start.Add(-24*time.Hour), start.Add(-24*time.Hour),
	)
}

func bookingRows(status model.BookingStatus, payment model.PaymentStatus, hash string) *sqlmock.Rows {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(bookingCols).AddRow(
		bookingID, tripID, passengerID, 2,
		35.71, 51.41, "Tehran, Enqelab St",
		35.79, 50.95, "Karaj, Gohardasht",
		300000, string(status), string(payment), hash,
		"", 1, nil, nil,
		false, false,
		nil, nil, created, created,
	)
}

func futureStart() time.Time { return time.Now().UTC().Add(3 * time.Hour) }

func validPickup() model.Location {
	return model.Location{Latitude: 35.71, Longitude: 51.41, Address: "Tehran, Enqelab St"}
}

func validDropoff() model.Location {
	return model.Location{Latitude: 35.79, Longitude: 50.95, Address: "Karaj, Gohardasht"}
}

func TestCreateBookingReservesSeatsAndPrices(t *testing.T) {
	svc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) FOR UPDATE`).
		WithArgs(tripID).
		WillReturnRows(tripRows(3, futureStart()))
	mock.ExpectExec(`UPDATE trips SET available_seats = available_seats - `).
		WithArgs(uint32(2), tripID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(int64(bookingID), 1))
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT created_at, updated_at FROM bookings WHERE id = `).
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))
	mock.ExpectCommit()

	b, code, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		TripID:  tripID,
		Seats:   2,
		Pickup:  validPickup(),
		Dropoff: validDropoff(),
	})
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}
	if b.TotalPriceCents != 300000 {
		t.Errorf("price: got %d, want 300000", b.TotalPriceCents)
	}
	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		t.Errorf("new booking state: %s/%s", b.Status, b.PaymentStatus)
	}
	if len(code) != 6 {
		t.Errorf("pickup code: got %q, want 6 digits", code)
	}
	if !utils.VerifyPickupCode(b.PickupCodeHash, code) {
		t.Error("stored hash does not verify the returned code")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingOversellRollsBack(t *testing.T) {
	svc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) FOR UPDATE`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectRollback()

	_, _, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		TripID:  tripID,
		Seats:   2,
		Pickup:  validPickup(),
		Dropoff: validDropoff(),
	})
	var seatErr *repository.SeatConflictError
	if !errors.As(err, &seatErr) {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if seatErr.Remaining != 1 {
		t.Errorf("remaining: got %d, want 1", seatErr.Remaining)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingOwnTripForbidden(t *testing.T) {
	svc, mock := newCoordinator(t)
	adminDriver := model.Principal{UserID: driverID, Role: model.RoleAdmin}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) FOR UPDATE`).
		WithArgs(tripID).
		WillReturnRows(tripRows(3, futureStart()))
	// The seat decrement happens before the ownership check; the rollback
	// below undoes it.
	mock.ExpectExec(`UPDATE trips SET available_seats = available_seats - `).
		WithArgs(uint32(1), tripID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, _, err := svc.CreateBooking(context.Background(), adminDriver, CreateBookingInput{
		TripID:  tripID,
		Seats:   1,
		Pickup:  validPickup(),
		Dropoff: validDropoff(),
	})
	if !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden booking own trip, got %v", err)
	}
}

func TestRejectReleasesSeatsAndRefunds(t *testing.T) {
	svc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingPending, model.PaymentPaid, "hash"))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) AND deleted_at IS NULL`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) FOR UPDATE`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectExec(`UPDATE trips SET available_seats = available_seats \+ `).
		WithArgs(uint32(2), tripID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET status = (.+), cancel_reason = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET payment_status = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.Reject(context.Background(), driver, bookingID, "vehicle trouble")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if b.Status != model.BookingCancelledByDriver {
		t.Errorf("status: got %s, want cancelled_by_driver", b.Status)
	}
	if b.PaymentStatus != model.PaymentRefunded {
		t.Errorf("payment: got %s, want refunded", b.PaymentStatus)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelAfterDepartureRejected(t *testing.T) {
	svc, mock := newCoordinator(t)
	departed := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingConfirmed, model.PaymentPaid, "hash"))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) AND deleted_at IS NULL`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, departed))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), passenger, bookingID, "changed my mind")
	if !errors.Is(err, repository.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after departure, got %v", err)
	}
}

func TestCancelForeignBookingForbidden(t *testing.T) {
	svc, mock := newCoordinator(t)
	other := model.Principal{UserID: 42, Role: model.RolePassenger}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingPending, model.PaymentPending, "hash"))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) AND deleted_at IS NULL`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), other, bookingID, "")
	if !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestVerifyPickupStartsRide(t *testing.T) {
	svc, mock := newCoordinator(t)
	hash, err := utils.HashPickupCode("123456", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingConfirmed, model.PaymentPaid, hash))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) AND deleted_at IS NULL`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectExec(`UPDATE bookings SET status = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.VerifyPickup(context.Background(), driver, bookingID, "123456")
	if err != nil {
		t.Fatalf("pickup failed: %v", err)
	}
	if b.Status != model.BookingInProgress {
		t.Errorf("status: got %s, want in_progress", b.Status)
	}
}

func TestVerifyPickupWrongCode(t *testing.T) {
	svc, mock := newCoordinator(t)
	hash, err := utils.HashPickupCode("123456", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingConfirmed, model.PaymentPaid, hash))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) AND deleted_at IS NULL`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectRollback()

	if _, err := svc.VerifyPickup(context.Background(), driver, bookingID, "654321"); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on wrong code, got %v", err)
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	svc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingConfirmed, model.PaymentPaid, "hash"))
	mock.ExpectCommit()

	if err := svc.MarkPaid(context.Background(), bookingID); err != nil {
		t.Fatalf("redelivered paid signal should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRateDriverFoldsAggregate(t *testing.T) {
	svc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRows(model.BookingCompleted, model.PaymentPaid, "hash"))
	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = (.+) AND deleted_at IS NULL`).
		WithArgs(tripID).
		WillReturnRows(tripRows(1, futureStart()))
	mock.ExpectExec(`UPDATE bookings SET driver_rating = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT rating_avg, rating_count FROM users WHERE id = (.+) FOR UPDATE`).
		WithArgs(driverID).
		WillReturnRows(sqlmock.NewRows([]string{"rating_avg", "rating_count"}).AddRow(4.0, 1))
	mock.ExpectExec(`UPDATE users SET rating_avg = `).
		WithArgs(4.5, uint64(2), driverID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.RateDriver(context.Background(), passenger, bookingID, 5); err != nil {
		t.Fatalf("rate driver failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRateDriverTwiceRejected(t *testing.T) {
	svc, mock := newCoordinator(t)

	// Same completed booking, but already rated by the passenger.
	rows := sqlmock.NewRows(bookingCols).AddRow(
		bookingID, tripID, passengerID, 2,
		35.71, 51.41, "Tehran, Enqelab St",
		35.79, 50.95, "Karaj, Gohardasht",
		300000, string(model.BookingCompleted), string(model.PaymentPaid), "hash",
		"", 1, 5, nil,
		true, false,
		nil, nil, time.Now().UTC(), time.Now().UTC(),
	)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(rows)
	mock.ExpectRollback()

	if err := svc.RateDriver(context.Background(), passenger, bookingID, 4); !errors.Is(err, repository.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second rating, got %v", err)
	}
}
