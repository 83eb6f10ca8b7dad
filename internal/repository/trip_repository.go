package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// TripRepo provides CRUD operations for trips and is the sole authority for
// mutating a trip's available seat count. Seat mutation happens only inside
// a caller-owned transaction via ReserveSeatsTx / ReleaseSeatsTx so the
// seat change and the booking change commit or roll back together.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo returns a new TripRepo bound to the given database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying handle so services can open transactions that
// span repositories.
func (r *TripRepo) DB() *sql.DB { return r.db }

const tripColumns = `id, driver_id, vehicle_id,
	origin_lat, origin_lng, origin_address,
	dest_lat, dest_lng, dest_address,
	start_time, end_time, total_seats, available_seats,
	price_per_seat_cents, status, route_geom, created_at, updated_at`

// scanTrip reads one trip row in tripColumns order.
func scanTrip(row interface{ Scan(...interface{}) error }) (*model.Trip, error) {
	var t model.Trip
	var routeGeom []byte
	err := row.Scan(
		&t.ID, &t.DriverID, &t.VehicleID,
		&t.Origin.Latitude, &t.Origin.Longitude, &t.Origin.Address,
		&t.Destination.Latitude, &t.Destination.Longitude, &t.Destination.Address,
		&t.StartTime, &t.EndTime, &t.TotalSeats, &t.AvailableSeats,
		&t.PricePerSeatCents, &t.Status, &routeGeom, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.RouteGeom = routeGeom
	return &t, nil
}

// Create inserts a new trip. Available seats start at the full capacity.
// The generated ID and timestamps are populated on the passed trip.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	const q = `INSERT INTO trips (driver_id, vehicle_id,
			origin_lat, origin_lng, origin_address,
			dest_lat, dest_lng, dest_address,
			start_time, end_time, total_seats, available_seats,
			price_per_seat_cents, status, route_geom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		t.DriverID, t.VehicleID,
		t.Origin.Latitude, t.Origin.Longitude, t.Origin.Address,
		t.Destination.Latitude, t.Destination.Longitude, t.Destination.Address,
		t.StartTime.UTC(), t.EndTime.UTC(), t.TotalSeats, t.TotalSeats,
		t.PricePerSeatCents, model.TripScheduled, t.RouteGeom,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.AvailableSeats = t.TotalSeats
	t.Status = model.TripScheduled
	sel := `SELECT created_at, updated_at FROM trips WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a trip by its ID. Soft-deleted trips are treated as
// absent and yield ErrTripNotFound.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*model.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = ? AND deleted_at IS NULL`
	t, err := scanTrip(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	return t, err
}

// GetForUpdateTx loads a trip inside the given transaction with a row lock
// so concurrent seat mutations and status changes on the same trip are
// linearized.
func (r *TripRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = ? AND deleted_at IS NULL FOR UPDATE`
	t, err := scanTrip(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	return t, err
}

// ReserveSeatsTx atomically decrements the trip's available seats by count
// and returns the locked trip row with the decrement applied. The row lock
// lasts until the transaction ends, so the check and the decrement cannot
// race with a concurrent reservation.
//
// Preconditions enforced here: the trip exists, is scheduled, has not
// departed, and has at least count seats free. Failures map onto the
// shared taxonomy: ErrTripNotFound, ErrInvalidState, or a *SeatConflictError
// carrying the exact number of seats remaining.
func (r *TripRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, tripID uint64, count uint32, now time.Time) (*model.Trip, error) {
	if count < 1 {
		return nil, model.ValidationError("seat count must be at least 1")
	}
	t, err := r.GetForUpdateTx(ctx, tx, tripID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TripScheduled || t.Departed(now) {
		return nil, ErrInvalidState
	}
	if t.AvailableSeats < count {
		return nil, &SeatConflictError{TripID: tripID, Requested: count, Remaining: t.AvailableSeats}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE trips SET available_seats = available_seats - ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		count, tripID,
	)
	if err != nil {
		return nil, err
	}
	t.AvailableSeats -= count
	return t, nil
}

// ReleaseSeatsTx returns count seats to the trip. Pushing available seats
// past the original capacity means a booking released twice; that is a
// coordinator bug and fails loudly with ErrSeatInvariant instead of
// clamping.
func (r *TripRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, tripID uint64, count uint32) error {
	t, err := r.GetForUpdateTx(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if t.AvailableSeats+count > t.TotalSeats {
		return ErrSeatInvariant
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE trips SET available_seats = available_seats + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		count, tripID,
	)
	return err
}

// Update persists the mutable trip fields (schedule, locations, price,
// capacity, route). Seat counts are not written here; capacity changes go
// through UpdateCapacityTx so the available-seat adjustment stays atomic.
func (r *TripRepo) Update(ctx context.Context, t *model.Trip) error {
	return r.update(ctx, r.db, t)
}

// UpdateTx is Update running inside a caller-owned transaction, used when
// the field write must stay atomic with a capacity check on the locked row.
func (r *TripRepo) UpdateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
	return r.update(ctx, tx, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *TripRepo) update(ctx context.Context, ex execer, t *model.Trip) error {
	const q = `UPDATE trips SET vehicle_id = ?,
			origin_lat = ?, origin_lng = ?, origin_address = ?,
			dest_lat = ?, dest_lng = ?, dest_address = ?,
			start_time = ?, end_time = ?, price_per_seat_cents = ?, route_geom = ?,
			updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND deleted_at IS NULL`
	res, err := ex.ExecContext(ctx, q,
		t.VehicleID,
		t.Origin.Latitude, t.Origin.Longitude, t.Origin.Address,
		t.Destination.Latitude, t.Destination.Longitude, t.Destination.Address,
		t.StartTime.UTC(), t.EndTime.UTC(), t.PricePerSeatCents, t.RouteGeom,
		t.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrTripNotFound
	}
	return err
}

// UpdateCapacityTx changes the trip capacity and available seats together
// under the row lock. Callers must have verified that no active bookings
// exist on the trip.
func (r *TripRepo) UpdateCapacityTx(ctx context.Context, tx *sql.Tx, tripID uint64, capacity uint32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET total_seats = ?, available_seats = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		capacity, capacity, tripID,
	)
	return err
}

// UpdateStatusTx writes a new lifecycle status inside the transaction.
func (r *TripRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, tripID uint64, status model.TripStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		status, tripID,
	)
	return err
}

// SoftDeleteTx marks the trip deleted without erasing the row, keeping it
// referencable from historical bookings.
func (r *TripRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, tripID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET deleted_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP() WHERE id = ? AND deleted_at IS NULL`,
		tripID,
	)
	return err
}

// ListByDriver returns the driver's trips, newest departure first.
func (r *TripRepo) ListByDriver(ctx context.Context, driverID uint64) ([]model.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips
		WHERE driver_id = ? AND deleted_at IS NULL
		ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, q, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SearchCandidates is the cheap, index-friendly pre-filter behind carpool
// matching: scheduled trips with seats free departing inside [from, to].
// Exact proximity is computed by the caller; a trip booked out between this
// read and the booking attempt is re-validated at reservation commit time.
func (r *TripRepo) SearchCandidates(ctx context.Context, from, to time.Time) ([]model.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips
		WHERE status = ? AND available_seats > 0 AND deleted_at IS NULL
		  AND start_time BETWEEN ? AND ?
		ORDER BY start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, model.TripScheduled, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
