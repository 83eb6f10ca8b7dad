package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/queue"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
)

// TripService owns the trip lifecycle: creation, updates while scheduled,
// start/complete/cancel transitions, soft deletion and waypoints. Trip
// cancellation cascades to all active bookings in one transaction.
type TripService struct {
	trips     *repository.TripRepo
	bookings  *repository.BookingRepo
	waypoints *repository.WaypointRepo
	events    *queue.Publisher
}

// NewTripService constructs the trip service. events may be nil.
func NewTripService(trips *repository.TripRepo, bookings *repository.BookingRepo, waypoints *repository.WaypointRepo, events *queue.Publisher) *TripService {
	if trips == nil || bookings == nil || waypoints == nil {
		panic("nil repository passed to NewTripService")
	}
	return &TripService{trips: trips, bookings: bookings, waypoints: waypoints, events: events}
}

// CreateTripInput carries a driver's trip offer.
type CreateTripInput struct {
	VehicleID         uint64         `json:"vehicle_id"`
	Origin            model.Location `json:"origin"`
	Destination       model.Location `json:"destination"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	TotalSeats        uint32         `json:"total_seats"`
	PricePerSeatCents uint32         `json:"price_per_seat_cents"`
	RouteGeom         []byte         `json:"-"`
}

// CreateTrip validates and persists a new scheduled trip for the calling
// driver. Available seats start at full capacity.
func (s *TripService) CreateTrip(ctx context.Context, p model.Principal, in CreateTripInput) (*model.Trip, error) {
	if !p.Role.Can(model.ActionTripManage) {
		return nil, fmt.Errorf("%w: role %s cannot create trips", repository.ErrForbidden, p.Role)
	}
	t := &model.Trip{
		DriverID:          p.UserID,
		VehicleID:         in.VehicleID,
		Origin:            in.Origin,
		Destination:       in.Destination,
		StartTime:         in.StartTime.UTC(),
		EndTime:           in.EndTime.UTC(),
		TotalSeats:        in.TotalSeats,
		PricePerSeatCents: in.PricePerSeatCents,
		RouteGeom:         in.RouteGeom,
	}
	if err := t.Validate(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.trips.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTrip returns a trip by ID. Trips are public inventory, anyone
// authenticated may read them.
func (s *TripService) GetTrip(ctx context.Context, id uint64) (*model.Trip, error) {
	return s.trips.GetByID(ctx, id)
}

// ListMyTrips returns the caller's trips as a driver, newest first.
func (s *TripService) ListMyTrips(ctx context.Context, p model.Principal) ([]model.Trip, error) {
	return s.trips.ListByDriver(ctx, p.UserID)
}

// UpdateTripInput carries the fields a driver may change while the trip is
// still scheduled. Nil pointers leave the current value untouched.
type UpdateTripInput struct {
	VehicleID         *uint64         `json:"vehicle_id"`
	Origin            *model.Location `json:"origin"`
	Destination       *model.Location `json:"destination"`
	StartTime         *time.Time      `json:"start_time"`
	EndTime           *time.Time      `json:"end_time"`
	TotalSeats        *uint32         `json:"total_seats"`
	PricePerSeatCents *uint32         `json:"price_per_seat_cents"`
	RouteGeom         []byte          `json:"-"`
}

// UpdateTrip mutates a scheduled trip. Capacity may only change while no
// active bookings hold seats; the check and the write run in one
// transaction under the trip row lock.
func (s *TripService) UpdateTrip(ctx context.Context, p model.Principal, tripID uint64, in UpdateTripInput) (*model.Trip, error) {
	if !p.Role.Can(model.ActionTripManage) {
		return nil, fmt.Errorf("%w: role %s cannot update trips", repository.ErrForbidden, p.Role)
	}
	var updated *model.Trip
	err := runInTx(ctx, s.trips.DB(), func(tx *sql.Tx) error {
		t, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if err := s.requireDriver(p, t); err != nil {
			return err
		}
		if t.Status != model.TripScheduled {
			return fmt.Errorf("%w: trip is %s, only scheduled trips can be updated", repository.ErrInvalidState, t.Status)
		}
		if in.VehicleID != nil {
			t.VehicleID = *in.VehicleID
		}
		if in.Origin != nil {
			t.Origin = *in.Origin
		}
		if in.Destination != nil {
			t.Destination = *in.Destination
		}
		if in.StartTime != nil {
			t.StartTime = in.StartTime.UTC()
		}
		if in.EndTime != nil {
			t.EndTime = in.EndTime.UTC()
		}
		if in.PricePerSeatCents != nil {
			t.PricePerSeatCents = *in.PricePerSeatCents
		}
		if in.RouteGeom != nil {
			t.RouteGeom = in.RouteGeom
		}
		if err := t.Validate(time.Now().UTC()); err != nil {
			return err
		}
		if in.TotalSeats != nil && *in.TotalSeats != t.TotalSeats {
			if *in.TotalSeats < 1 {
				return model.ValidationError("total_seats must be at least 1")
			}
			held, err := s.bookings.SumActiveSeats(ctx, tripID)
			if err != nil {
				return err
			}
			if held > 0 {
				return fmt.Errorf("%w: %d seats are held by active bookings, capacity is frozen", repository.ErrInvalidState, held)
			}
			if err := s.trips.UpdateCapacityTx(ctx, tx, tripID, *in.TotalSeats); err != nil {
				return err
			}
			t.TotalSeats = *in.TotalSeats
			t.AvailableSeats = *in.TotalSeats
		}
		if err := s.trips.UpdateTx(ctx, tx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// StartTrip moves a scheduled trip to in_progress.
func (s *TripService) StartTrip(ctx context.Context, p model.Principal, tripID uint64) (*model.Trip, error) {
	return s.setStatus(ctx, p, tripID, model.TripInProgress)
}

// CompleteTrip moves an in-progress trip to completed.
func (s *TripService) CompleteTrip(ctx context.Context, p model.Principal, tripID uint64) (*model.Trip, error) {
	return s.setStatus(ctx, p, tripID, model.TripCompleted)
}

func (s *TripService) setStatus(ctx context.Context, p model.Principal, tripID uint64, target model.TripStatus) (*model.Trip, error) {
	if !p.Role.Can(model.ActionTripManage) {
		return nil, fmt.Errorf("%w: role %s cannot manage trips", repository.ErrForbidden, p.Role)
	}
	var trip *model.Trip
	err := runInTx(ctx, s.trips.DB(), func(tx *sql.Tx) error {
		t, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if err := s.requireDriver(p, t); err != nil {
			return err
		}
		if !t.Status.CanTransition(target) {
			return fmt.Errorf("%w: trip is %s and cannot move to %s", repository.ErrInvalidState, t.Status, target)
		}
		if err := s.trips.UpdateStatusTx(ctx, tx, tripID, target); err != nil {
			return err
		}
		t.Status = target
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// CancelTrip cancels a trip and every active booking on it in a single
// transaction: each booking becomes cancelled_by_driver, its seats flow
// back, paid bookings are flagged refunded, and the trip ends cancelled.
// Status-change events for the affected bookings are published after
// commit.
func (s *TripService) CancelTrip(ctx context.Context, p model.Principal, tripID uint64, reason string) (*model.Trip, error) {
	if !p.Role.Can(model.ActionTripManage) {
		return nil, fmt.Errorf("%w: role %s cannot cancel trips", repository.ErrForbidden, p.Role)
	}
	trip, cancelled, err := s.cancelCascade(ctx, p, tripID, reason, false)
	if err != nil {
		return nil, err
	}
	s.publishCancellations(ctx, trip, cancelled, reason)
	return trip, nil
}

// DeleteTrip soft-deletes a scheduled trip. Active bookings are cancelled
// first, exactly as CancelTrip does, then the row is marked deleted so
// historical bookings keep something to point at.
func (s *TripService) DeleteTrip(ctx context.Context, p model.Principal, tripID uint64, reason string) error {
	if !p.Role.Can(model.ActionTripManage) {
		return fmt.Errorf("%w: role %s cannot delete trips", repository.ErrForbidden, p.Role)
	}
	trip, cancelled, err := s.cancelCascade(ctx, p, tripID, reason, true)
	if err != nil {
		return err
	}
	s.publishCancellations(ctx, trip, cancelled, reason)
	return nil
}

// cancelCascade is the shared core of CancelTrip and DeleteTrip. It returns
// the trip and the bookings it cancelled so the callers can publish events
// after the transaction commits.
func (s *TripService) cancelCascade(ctx context.Context, p model.Principal, tripID uint64, reason string, softDelete bool) (*model.Trip, []model.Booking, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	var trip *model.Trip
	var cancelled []model.Booking
	err := runInTx(ctx, s.trips.DB(), func(tx *sql.Tx) error {
		t, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if err := s.requireDriver(p, t); err != nil {
			return err
		}
		if softDelete && t.Status != model.TripScheduled {
			return fmt.Errorf("%w: trip is %s, only scheduled trips can be deleted", repository.ErrInvalidState, t.Status)
		}
		if !softDelete && !t.Status.CanTransition(model.TripCancelled) {
			return fmt.Errorf("%w: trip is %s and cannot be cancelled", repository.ErrInvalidState, t.Status)
		}
		active, err := s.bookings.ListActiveByTripTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		for i := range active {
			b := &active[i]
			if err := s.trips.ReleaseSeatsTx(ctx, tx, tripID, b.Seats); err != nil {
				return err
			}
			if err := s.bookings.CancelTx(ctx, tx, b.ID, model.BookingCancelledByDriver, reasonPtr); err != nil {
				return err
			}
			if b.PaymentStatus == model.PaymentPaid {
				if err := s.bookings.SetPaymentStatusTx(ctx, tx, b.ID, model.PaymentRefunded); err != nil {
					return err
				}
				b.PaymentStatus = model.PaymentRefunded
			}
		}
		if err := s.trips.UpdateStatusTx(ctx, tx, tripID, model.TripCancelled); err != nil {
			return err
		}
		if softDelete {
			if err := s.trips.SoftDeleteTx(ctx, tx, tripID); err != nil {
				return err
			}
		}
		t.Status = model.TripCancelled
		trip = t
		cancelled = active
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return trip, cancelled, nil
}

func (s *TripService) publishCancellations(ctx context.Context, trip *model.Trip, bookings []model.Booking, reason string) {
	if s.events == nil {
		return
	}
	changedAt := time.Now().UTC().Format(time.RFC3339)
	for i := range bookings {
		b := &bookings[i]
		_ = s.events.BookingStatusChanged(ctx, queue.BookingStatusChangedEvent{
			BookingID:     b.ID,
			TripID:        trip.ID,
			PassengerID:   b.PassengerID,
			DriverID:      trip.DriverID,
			OldStatus:     string(b.Status),
			NewStatus:     string(model.BookingCancelledByDriver),
			PaymentStatus: string(b.PaymentStatus),
			Reason:        reason,
			ChangedAt:     changedAt,
		})
	}
}

// AppendWaypoint adds a pickup or dropoff sub-stop to the driver's trip.
// Waypoints are append-only.
func (s *TripService) AppendWaypoint(ctx context.Context, p model.Principal, w *model.Waypoint) error {
	if !p.Role.Can(model.ActionTripManage) {
		return fmt.Errorf("%w: role %s cannot manage trips", repository.ErrForbidden, p.Role)
	}
	if err := w.Validate(); err != nil {
		return err
	}
	t, err := s.trips.GetByID(ctx, w.TripID)
	if err != nil {
		return err
	}
	if err := s.requireDriver(p, t); err != nil {
		return err
	}
	if t.Status == model.TripCompleted || t.Status == model.TripCancelled {
		return fmt.Errorf("%w: trip is %s, waypoints are frozen", repository.ErrInvalidState, t.Status)
	}
	return s.waypoints.Append(ctx, w)
}

// WaypointWithETA pairs a waypoint with its estimated arrival time.
type WaypointWithETA struct {
	model.Waypoint
	ETA time.Time `json:"eta"`
}

// ListWaypoints returns the trip's waypoints in travel order together with
// estimated arrival times derived from the trip schedule.
func (s *TripService) ListWaypoints(ctx context.Context, tripID uint64) ([]WaypointWithETA, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	wps, err := s.waypoints.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	model.SortWaypoints(wps)
	etas := model.WaypointETAs(t.StartTime, t.EstimatedDuration(), wps)
	out := make([]WaypointWithETA, len(wps))
	for i := range wps {
		out[i] = WaypointWithETA{Waypoint: wps[i], ETA: etas[i]}
	}
	return out, nil
}

func (s *TripService) requireDriver(p model.Principal, t *model.Trip) error {
	if p.Role == model.RoleAdmin {
		return nil
	}
	if t.DriverID != p.UserID {
		return fmt.Errorf("%w: not your trip", repository.ErrForbidden)
	}
	return nil
}
