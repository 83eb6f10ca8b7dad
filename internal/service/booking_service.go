package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/queue"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
	"github.com/iliyamo/carpool-marketplace/internal/utils"
)

// BookingService is the reservation coordinator. It drives the booking
// state machine and is the only place where seat-affecting transitions
// (create, reject, cancel, no-show, trip cancellation) are performed, each
// inside one transaction pairing the booking change with the seat change.
type BookingService struct {
	trips      *repository.TripRepo
	bookings   *repository.BookingRepo
	users      *repository.UserRepo
	events     *queue.Publisher
	bcryptCost int
}

// NewBookingService constructs the coordinator. events may be nil, in which
// case no messages are published (tests use this).
func NewBookingService(trips *repository.TripRepo, bookings *repository.BookingRepo, users *repository.UserRepo, events *queue.Publisher, bcryptCost int) *BookingService {
	if trips == nil || bookings == nil || users == nil {
		panic("nil repository passed to NewBookingService")
	}
	return &BookingService{trips: trips, bookings: bookings, users: users, events: events, bcryptCost: bcryptCost}
}

// CreateBookingInput carries the passenger's booking request.
type CreateBookingInput struct {
	TripID       uint64         `json:"trip_id"`
	Seats        uint32         `json:"seats"`
	Pickup       model.Location `json:"pickup"`
	Dropoff      model.Location `json:"dropoff"`
	Notes        string         `json:"notes"`
	BaggageCount uint32         `json:"baggage_count"`
}

// CreateBooking reserves seats and creates the booking in one transaction.
// On success it returns the booking together with the plain pickup code;
// the code is not recoverable afterwards, only its hash is stored.
//
// Seat availability is validated under the trip row lock at commit time, so
// a trip that looked bookable in a stale search result still cannot be
// oversold here.
func (s *BookingService) CreateBooking(ctx context.Context, p model.Principal, in CreateBookingInput) (*model.Booking, string, error) {
	if !p.Role.Can(model.ActionBookingCreate) {
		return nil, "", fmt.Errorf("%w: role %s cannot create bookings", repository.ErrForbidden, p.Role)
	}
	if in.Seats < 1 {
		return nil, "", model.ValidationError("seats must be at least 1")
	}
	if err := in.Pickup.Validate("pickup"); err != nil {
		return nil, "", err
	}
	if err := in.Dropoff.Validate("dropoff"); err != nil {
		return nil, "", err
	}

	code, err := utils.GeneratePickupCode()
	if err != nil {
		return nil, "", err
	}
	hash, err := utils.HashPickupCode(code, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	booking := &model.Booking{
		TripID:         in.TripID,
		PassengerID:    p.UserID,
		Seats:          in.Seats,
		Pickup:         in.Pickup,
		Dropoff:        in.Dropoff,
		PickupCodeHash: hash,
		Notes:          in.Notes,
		BaggageCount:   in.BaggageCount,
	}
	var trip *model.Trip
	err = runInTx(ctx, s.trips.DB(), func(tx *sql.Tx) error {
		t, err := s.trips.ReserveSeatsTx(ctx, tx, in.TripID, in.Seats, time.Now().UTC())
		if err != nil {
			return err
		}
		if t.DriverID == p.UserID {
			return fmt.Errorf("%w: drivers cannot book seats on their own trip", repository.ErrForbidden)
		}
		trip = t
		booking.TotalPriceCents = t.PricePerSeatCents * in.Seats
		return s.bookings.CreateTx(ctx, tx, booking)
	})
	if err != nil {
		return nil, "", err
	}

	if s.events != nil {
		_ = s.events.BookingCreated(ctx, queue.BookingCreatedEvent{
			BookingID:       booking.ID,
			TripID:          trip.ID,
			PassengerID:     booking.PassengerID,
			DriverID:        trip.DriverID,
			Seats:           booking.Seats,
			TotalPriceCents: booking.TotalPriceCents,
			PickupAddress:   booking.Pickup.Address,
			DropoffAddress:  booking.Dropoff.Address,
			TripStartsAt:    trip.StartTime.UTC().Format(time.RFC3339),
			CreatedAt:       booking.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return booking, code, nil
}

// Confirm moves a pending booking to confirmed. Only the trip's driver (or
// an admin) may call it.
func (s *BookingService) Confirm(ctx context.Context, p model.Principal, bookingID uint64) (*model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.ActionBookingConfirm, nil,
		func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error {
			if err := s.requireTripDriver(p, t); err != nil {
				return err
			}
			if !b.Status.CanTransition(model.BookingConfirmed) {
				return fmt.Errorf("%w: booking is %s, only pending bookings can be confirmed", repository.ErrInvalidState, b.Status)
			}
			if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingConfirmed); err != nil {
				return err
			}
			b.Status = model.BookingConfirmed
			return nil
		})
}

// Reject moves a pending booking to cancelled_by_driver, releasing its
// seats and flagging a refund when the passenger already paid — all in the
// same transaction.
func (s *BookingService) Reject(ctx context.Context, p model.Principal, bookingID uint64, reason string) (*model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.ActionBookingReject, &reason,
		func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error {
			if err := s.requireTripDriver(p, t); err != nil {
				return err
			}
			if b.Status != model.BookingPending {
				return fmt.Errorf("%w: booking is %s, only pending bookings can be rejected", repository.ErrInvalidState, b.Status)
			}
			return s.cancelLocked(ctx, tx, b, model.BookingCancelledByDriver, &reason)
		})
}

// Cancel cancels a pending or confirmed booking before the trip departs.
// The resulting status depends on who cancels: the booking's passenger
// yields cancelled_by_passenger, the trip's driver (or an admin)
// cancelled_by_driver. Seats are released and a paid booking is flagged
// refunded in the same transaction.
func (s *BookingService) Cancel(ctx context.Context, p model.Principal, bookingID uint64, reason string) (*model.Booking, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return s.transition(ctx, p, bookingID, model.ActionBookingCancel, reasonPtr,
		func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error {
			target := model.BookingCancelledByDriver
			switch {
			case p.Role == model.RolePassenger || (p.Role == model.RoleAdmin && b.PassengerID == p.UserID):
				if b.PassengerID != p.UserID {
					return fmt.Errorf("%w: not your booking", repository.ErrForbidden)
				}
				target = model.BookingCancelledByPassenger
			default:
				if err := s.requireTripDriver(p, t); err != nil {
					return err
				}
			}
			if t.Departed(time.Now().UTC()) {
				return fmt.Errorf("%w: trip already departed", repository.ErrInvalidState)
			}
			if !b.Status.CanTransition(target) {
				return fmt.Errorf("%w: booking is %s and cannot be cancelled", repository.ErrInvalidState, b.Status)
			}
			return s.cancelLocked(ctx, tx, b, target, reasonPtr)
		})
}

// VerifyPickup checks the passenger's 6-digit code and moves a confirmed
// booking to in_progress. Only the trip's driver may call it; a wrong code
// is rejected without a state change.
func (s *BookingService) VerifyPickup(ctx context.Context, p model.Principal, bookingID uint64, code string) (*model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.ActionBookingPickup, nil,
		func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error {
			if err := s.requireTripDriver(p, t); err != nil {
				return err
			}
			if !b.Status.CanTransition(model.BookingInProgress) {
				return fmt.Errorf("%w: booking is %s, only confirmed bookings can start", repository.ErrInvalidState, b.Status)
			}
			if !utils.VerifyPickupCode(b.PickupCodeHash, code) {
				return fmt.Errorf("%w: pickup code mismatch", repository.ErrForbidden)
			}
			if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingInProgress); err != nil {
				return err
			}
			b.Status = model.BookingInProgress
			return nil
		})
}

// Complete moves a confirmed or in-progress booking to completed and
// records the actual dropoff time. Only the trip's driver may call it.
func (s *BookingService) Complete(ctx context.Context, p model.Principal, bookingID uint64) (*model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.ActionBookingComplete, nil,
		func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error {
			if err := s.requireTripDriver(p, t); err != nil {
				return err
			}
			if !b.Status.CanTransition(model.BookingCompleted) {
				return fmt.Errorf("%w: booking is %s and cannot be completed", repository.ErrInvalidState, b.Status)
			}
			now := time.Now().UTC()
			if err := s.bookings.CompleteTx(ctx, tx, b.ID, now); err != nil {
				return err
			}
			b.Status = model.BookingCompleted
			b.ActualDropoffAt = &now
			return nil
		})
}

// MarkNoShow records that the passenger did not appear after the trip
// departed. The booking's seats flow back to the trip so the seat-sum
// invariant keeps holding; the payment status is left untouched.
func (s *BookingService) MarkNoShow(ctx context.Context, p model.Principal, bookingID uint64) (*model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.ActionBookingComplete, nil,
		func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error {
			if err := s.requireTripDriver(p, t); err != nil {
				return err
			}
			if !t.Departed(time.Now().UTC()) {
				return fmt.Errorf("%w: trip has not departed yet", repository.ErrInvalidState)
			}
			if !b.Status.CanTransition(model.BookingNoShow) {
				return fmt.Errorf("%w: booking is %s and cannot be marked no-show", repository.ErrInvalidState, b.Status)
			}
			if err := s.trips.ReleaseSeatsTx(ctx, tx, b.TripID, b.Seats); err != nil {
				return err
			}
			if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingNoShow); err != nil {
				return err
			}
			b.Status = model.BookingNoShow
			return nil
		})
}

// RateDriver records the passenger's 1-5 rating of the driver on a
// completed booking and folds it into the driver's running average inside
// the same transaction. Each party rates at most once.
func (s *BookingService) RateDriver(ctx context.Context, p model.Principal, bookingID uint64, rating uint8) error {
	if !p.Role.Can(model.ActionBookingRateDriver) {
		return fmt.Errorf("%w: role %s cannot rate drivers", repository.ErrForbidden, p.Role)
	}
	if !model.ValidRating(rating) {
		return model.Validationf("rating %d out of range 1-5", rating)
	}
	return runInTx(ctx, s.bookings.DB(), func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if p.Role != model.RoleAdmin && b.PassengerID != p.UserID {
			return fmt.Errorf("%w: not your booking", repository.ErrForbidden)
		}
		if b.Status != model.BookingCompleted {
			return fmt.Errorf("%w: only completed bookings can be rated", repository.ErrInvalidState)
		}
		if b.ReviewedByPassenger {
			return fmt.Errorf("%w: booking already rated by passenger", repository.ErrInvalidState)
		}
		t, err := s.trips.GetByID(ctx, b.TripID)
		if err != nil {
			return err
		}
		if err := s.bookings.SetDriverRatingTx(ctx, tx, b.ID, rating); err != nil {
			return err
		}
		avg, count, err := s.users.GetRatingForUpdateTx(ctx, tx, t.DriverID)
		if err != nil {
			return err
		}
		newAvg, newCount := model.FoldRating(avg, count, rating)
		return s.users.SetRatingTx(ctx, tx, t.DriverID, newAvg, newCount)
	})
}

// RatePassenger records the driver's 1-5 rating of the passenger on a
// completed booking. Passenger ratings are stored on the booking only;
// no per-user aggregate exists for passengers (kept asymmetric on purpose).
func (s *BookingService) RatePassenger(ctx context.Context, p model.Principal, bookingID uint64, rating uint8) error {
	if !p.Role.Can(model.ActionBookingRatePassenger) {
		return fmt.Errorf("%w: role %s cannot rate passengers", repository.ErrForbidden, p.Role)
	}
	if !model.ValidRating(rating) {
		return model.Validationf("rating %d out of range 1-5", rating)
	}
	return runInTx(ctx, s.bookings.DB(), func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		t, err := s.trips.GetByID(ctx, b.TripID)
		if err != nil {
			return err
		}
		if err := s.requireTripDriver(p, t); err != nil {
			return err
		}
		if b.Status != model.BookingCompleted {
			return fmt.Errorf("%w: only completed bookings can be rated", repository.ErrInvalidState)
		}
		if b.ReviewedByDriver {
			return fmt.Errorf("%w: booking already rated by driver", repository.ErrInvalidState)
		}
		return s.bookings.SetPassengerRatingTx(ctx, tx, b.ID, rating)
	})
}

// UpdateDetailsInput carries the fields a passenger may change while the
// booking is still pending or confirmed. Seats and price are immutable.
type UpdateDetailsInput struct {
	Pickup       *model.Location `json:"pickup"`
	Dropoff      *model.Location `json:"dropoff"`
	Notes        *string         `json:"notes"`
	BaggageCount *uint32         `json:"baggage_count"`
}

// UpdateDetails mutates pickup/dropoff locations, notes and baggage on a
// pending or confirmed booking before the trip departs.
func (s *BookingService) UpdateDetails(ctx context.Context, p model.Principal, bookingID uint64, in UpdateDetailsInput) (*model.Booking, error) {
	if !p.Role.Can(model.ActionBookingUpdate) {
		return nil, fmt.Errorf("%w: role %s cannot update bookings", repository.ErrForbidden, p.Role)
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p.Role != model.RoleAdmin && b.PassengerID != p.UserID {
		return nil, fmt.Errorf("%w: not your booking", repository.ErrForbidden)
	}
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		return nil, fmt.Errorf("%w: booking is %s and can no longer be updated", repository.ErrInvalidState, b.Status)
	}
	t, err := s.trips.GetByID(ctx, b.TripID)
	if err != nil {
		return nil, err
	}
	if t.Departed(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: trip already departed", repository.ErrInvalidState)
	}
	if in.Pickup != nil {
		if err := in.Pickup.Validate("pickup"); err != nil {
			return nil, err
		}
		b.Pickup = *in.Pickup
	}
	if in.Dropoff != nil {
		if err := in.Dropoff.Validate("dropoff"); err != nil {
			return nil, err
		}
		b.Dropoff = *in.Dropoff
	}
	if in.Notes != nil {
		b.Notes = *in.Notes
	}
	if in.BaggageCount != nil {
		b.BaggageCount = *in.BaggageCount
	}
	if err := s.bookings.UpdateDetails(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// MarkPaid records the "payment confirmed" signal from the payment
// collaborator. Idempotent.
func (s *BookingService) MarkPaid(ctx context.Context, bookingID uint64) error {
	return s.setPaymentStatus(ctx, bookingID, model.PaymentPaid)
}

// MarkRefunded records the "payment refunded" signal. Idempotent.
func (s *BookingService) MarkRefunded(ctx context.Context, bookingID uint64) error {
	return s.setPaymentStatus(ctx, bookingID, model.PaymentRefunded)
}

// MarkPaymentFailed records the "payment failed" signal. Idempotent.
func (s *BookingService) MarkPaymentFailed(ctx context.Context, bookingID uint64) error {
	return s.setPaymentStatus(ctx, bookingID, model.PaymentFailed)
}

func (s *BookingService) setPaymentStatus(ctx context.Context, bookingID uint64, target model.PaymentStatus) error {
	return runInTx(ctx, s.bookings.DB(), func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus == target {
			return nil // already recorded, signals may be redelivered
		}
		return s.bookings.SetPaymentStatusTx(ctx, tx, b.ID, target)
	})
}

// GetBooking returns a booking visible to its passenger, the trip's driver
// or an admin.
func (s *BookingService) GetBooking(ctx context.Context, p model.Principal, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p.Role == model.RoleAdmin || b.PassengerID == p.UserID {
		return b, nil
	}
	t, err := s.trips.GetByID(ctx, b.TripID)
	if err != nil {
		return nil, err
	}
	if t.DriverID != p.UserID {
		return nil, fmt.Errorf("%w: not your booking", repository.ErrForbidden)
	}
	return b, nil
}

// ListMyBookings returns the caller's bookings as a passenger.
func (s *BookingService) ListMyBookings(ctx context.Context, p model.Principal) ([]model.Booking, error) {
	return s.bookings.ListByPassenger(ctx, p.UserID)
}

// ListTripBookings returns all bookings on a trip for its driver.
func (s *BookingService) ListTripBookings(ctx context.Context, p model.Principal, tripID uint64) ([]model.Booking, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.requireTripDriver(p, t); err != nil {
		return nil, err
	}
	return s.bookings.ListByTrip(ctx, tripID)
}

// requireTripDriver enforces the "only the trip's driver" rule, letting
// admins through. The message distinguishes wrong ownership from wrong
// lifecycle state, which the guards above report separately.
func (s *BookingService) requireTripDriver(p model.Principal, t *model.Trip) error {
	if p.Role == model.RoleAdmin {
		return nil
	}
	if t.DriverID != p.UserID {
		return fmt.Errorf("%w: not your trip", repository.ErrForbidden)
	}
	return nil
}

// cancelLocked releases the booking's seats and writes the cancellation
// status, flagging a refund when the passenger had already paid. The
// booking row is already locked and non-terminal: the terminal guard in the
// callers is what makes seat release idempotent — a booking can never
// release twice because its second transition is rejected before this
// point.
func (s *BookingService) cancelLocked(ctx context.Context, tx *sql.Tx, b *model.Booking, target model.BookingStatus, reason *string) error {
	if err := s.trips.ReleaseSeatsTx(ctx, tx, b.TripID, b.Seats); err != nil {
		return err
	}
	if err := s.bookings.CancelTx(ctx, tx, b.ID, target, reason); err != nil {
		return err
	}
	if b.PaymentStatus == model.PaymentPaid {
		if err := s.bookings.SetPaymentStatusTx(ctx, tx, b.ID, model.PaymentRefunded); err != nil {
			return err
		}
		b.PaymentStatus = model.PaymentRefunded
	}
	b.Status = target
	b.CancelReason = reason
	return nil
}

// transition wraps the shared shape of per-booking lifecycle operations:
// lock the booking, load its trip, run the guarded mutation, then publish
// the status change after commit.
func (s *BookingService) transition(
	ctx context.Context,
	p model.Principal,
	bookingID uint64,
	action model.Action,
	reason *string,
	fn func(ctx context.Context, tx *sql.Tx, b *model.Booking, t *model.Trip) error,
) (*model.Booking, error) {
	if !p.Role.Can(action) {
		return nil, fmt.Errorf("%w: role %s cannot perform %s", repository.ErrForbidden, p.Role, action)
	}
	var booking *model.Booking
	var trip *model.Trip
	var oldStatus model.BookingStatus
	err := runInTx(ctx, s.bookings.DB(), func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		t, err := s.trips.GetByID(ctx, b.TripID)
		if err != nil {
			return err
		}
		oldStatus = b.Status
		if err := fn(ctx, tx, b, t); err != nil {
			return err
		}
		booking, trip = b, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil && booking.Status != oldStatus {
		ev := queue.BookingStatusChangedEvent{
			BookingID:     booking.ID,
			TripID:        booking.TripID,
			PassengerID:   booking.PassengerID,
			DriverID:      trip.DriverID,
			OldStatus:     string(oldStatus),
			NewStatus:     string(booking.Status),
			PaymentStatus: string(booking.PaymentStatus),
			ChangedAt:     time.Now().UTC().Format(time.RFC3339),
		}
		if reason != nil {
			ev.Reason = *reason
		}
		_ = s.events.BookingStatusChanged(ctx, ev)
	}
	return booking, nil
}
