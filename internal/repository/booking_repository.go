package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// BookingRepo provides CRUD operations for bookings. Status transitions
// that touch seat counts are written through the ...Tx variants inside the
// same transaction that adjusts the trip row; the reservation coordinator
// owns that boundary.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, trip_id, passenger_id, seats,
	pickup_lat, pickup_lng, pickup_address,
	dropoff_lat, dropoff_lng, dropoff_address,
	total_price_cents, status, payment_status, pickup_code_hash,
	notes, baggage_count, driver_rating, passenger_rating,
	reviewed_by_passenger, reviewed_by_driver,
	cancel_reason, actual_dropoff_at, created_at, updated_at`

// scanBooking reads one booking row in bookingColumns order.
func scanBooking(row interface{ Scan(...interface{}) error }) (*model.Booking, error) {
	var b model.Booking
	var driverRating, passengerRating sql.NullInt16
	var cancelReason sql.NullString
	var dropoffAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.TripID, &b.PassengerID, &b.Seats,
		&b.Pickup.Latitude, &b.Pickup.Longitude, &b.Pickup.Address,
		&b.Dropoff.Latitude, &b.Dropoff.Longitude, &b.Dropoff.Address,
		&b.TotalPriceCents, &b.Status, &b.PaymentStatus, &b.PickupCodeHash,
		&b.Notes, &b.BaggageCount, &driverRating, &passengerRating,
		&b.ReviewedByPassenger, &b.ReviewedByDriver,
		&cancelReason, &dropoffAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverRating.Valid {
		v := uint8(driverRating.Int16)
		b.DriverRating = &v
	}
	if passengerRating.Valid {
		v := uint8(passengerRating.Int16)
		b.PassengerRating = &v
	}
	if cancelReason.Valid {
		v := cancelReason.String
		b.CancelReason = &v
	}
	if dropoffAt.Valid {
		v := dropoffAt.Time
		b.ActualDropoffAt = &v
	}
	return &b, nil
}

// CreateTx inserts a new booking within the scope of an existing
// transaction, pairing it with the seat decrement performed by the trip
// repository in the same transaction. The generated ID and timestamps are
// populated on the passed booking.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (trip_id, passenger_id, seats,
			pickup_lat, pickup_lng, pickup_address,
			dropoff_lat, dropoff_lng, dropoff_address,
			total_price_cents, status, payment_status, pickup_code_hash,
			notes, baggage_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.TripID, b.PassengerID, b.Seats,
		b.Pickup.Latitude, b.Pickup.Longitude, b.Pickup.Address,
		b.Dropoff.Latitude, b.Dropoff.Longitude, b.Dropoff.Address,
		b.TotalPriceCents, model.BookingPending, model.PaymentPending, b.PickupCodeHash,
		b.Notes, b.BaggageCount,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingPending
	b.PaymentStatus = model.PaymentPending
	sel := `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns a booking by its ID, ErrBookingNotFound when absent or
// soft-deleted.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND deleted_at IS NULL`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetForUpdateTx loads a booking inside the transaction with a row lock so
// transitions on the same booking are serialized (no double cancel, no
// confirm after reject).
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND deleted_at IS NULL FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// UpdateStatusTx writes a new lifecycle status inside the transaction.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		status, id,
	)
	return err
}

// CancelTx writes a cancellation status together with the optional reason.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, reason *string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancel_reason = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		status, reason, id,
	)
	return err
}

// CompleteTx marks the booking completed and records the actual dropoff
// time.
func (r *BookingRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, dropoffAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, actual_dropoff_at = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		model.BookingCompleted, dropoffAt.UTC(), id,
	)
	return err
}

// SetPaymentStatusTx records the payment signal inside the transaction.
func (r *BookingRepo) SetPaymentStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PaymentStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		status, id,
	)
	return err
}

// UpdateDetails mutates only the pickup/dropoff locations, notes and
// baggage count. Seats, price and statuses are never written here.
func (r *BookingRepo) UpdateDetails(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET
			pickup_lat = ?, pickup_lng = ?, pickup_address = ?,
			dropoff_lat = ?, dropoff_lng = ?, dropoff_address = ?,
			notes = ?, baggage_count = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q,
		b.Pickup.Latitude, b.Pickup.Longitude, b.Pickup.Address,
		b.Dropoff.Latitude, b.Dropoff.Longitude, b.Dropoff.Address,
		b.Notes, b.BaggageCount, b.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrBookingNotFound
	}
	return err
}

// SetDriverRatingTx records the passenger's rating of the driver and flips
// the reviewed flag, in the same transaction that folds the driver's
// aggregate.
func (r *BookingRepo) SetDriverRatingTx(ctx context.Context, tx *sql.Tx, id uint64, rating uint8) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET driver_rating = ?, reviewed_by_passenger = 1, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		rating, id,
	)
	return err
}

// SetPassengerRatingTx records the driver's rating of the passenger. No
// per-user aggregate exists for passengers.
func (r *BookingRepo) SetPassengerRatingTx(ctx context.Context, tx *sql.Tx, id uint64, rating uint8) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET passenger_rating = ?, reviewed_by_driver = 1, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		rating, id,
	)
	return err
}

// ListByPassenger returns the passenger's bookings, newest first.
func (r *BookingRepo) ListByPassenger(ctx context.Context, passengerID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE passenger_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC`
	return r.list(ctx, q, passengerID)
}

// ListByTrip returns all bookings on a trip, newest first. Intended for
// the trip's driver.
func (r *BookingRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE trip_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC`
	return r.list(ctx, q, tripID)
}

// ListActiveByTripTx loads and locks the trip's active bookings. Used when
// cancelling a whole trip so each booking's cancellation is serialized with
// any concurrent per-booking transition.
func (r *BookingRepo) ListActiveByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE trip_id = ? AND deleted_at IS NULL AND status IN (?, ?)
		ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, tripID, model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// SumActiveSeats returns the seat total held by active bookings on a trip.
// Together with the trip row it checks the capacity invariant
// available_seats + sum(active seats) == total_seats.
func (r *BookingRepo) SumActiveSeats(ctx context.Context, tripID uint64) (uint32, error) {
	const q = `SELECT COALESCE(SUM(seats), 0) FROM bookings
		WHERE trip_id = ? AND deleted_at IS NULL AND status IN (?, ?, ?, ?)`
	var sum uint32
	err := r.db.QueryRowContext(ctx, q, tripID,
		model.BookingPending, model.BookingConfirmed, model.BookingInProgress, model.BookingCompleted,
	).Scan(&sum)
	return sum, err
}

func (r *BookingRepo) list(ctx context.Context, q string, arg interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
