// Package repository implements persistence for trips, bookings, waypoints
// and users over database/sql. This file defines the error taxonomy shared
// across repositories and services so handlers can translate failures into
// precise HTTP responses with errors.Is / errors.As.
package repository

import (
	"errors"
	"fmt"
)

// ErrTripNotFound is returned when a trip does not exist or is soft-deleted.
var ErrTripNotFound = errors.New("trip not found")

// ErrBookingNotFound is returned when a booking does not exist or is
// soft-deleted.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when a referenced user row is absent.
var ErrUserNotFound = errors.New("user not found")

// ErrForbidden is returned when the caller lacks the role or ownership the
// operation requires. Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState is returned when an entity is not in the right lifecycle
// state for the requested transition (cancelling a completed booking,
// booking a departed trip, ...). Handlers translate it into HTTP 409.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict is returned for concurrency conflicts: seat oversell
// attempts and retry exhaustion on lock contention. The seat variants below
// unwrap to it.
var ErrConflict = errors.New("conflict")

// ErrSeatInvariant flags a double-release bug: a seat release that would
// push available seats past the trip's capacity. It indicates a coordinator
// defect, never bad user input, and must surface loudly.
var ErrSeatInvariant = errors.New("seat invariant violation")

// SeatConflictError is the caller-facing oversell error. Remaining carries
// the exact seat count left so the boundary can say "only 2 seats left"
// instead of a generic conflict. A Remaining of zero means the trip is
// fully booked.
type SeatConflictError struct {
	TripID    uint64
	Requested uint32
	Remaining uint32
}

// Error implements the error interface with the precise shortfall message.
func (e *SeatConflictError) Error() string {
	if e.Remaining == 0 {
		return fmt.Sprintf("trip %d is fully booked", e.TripID)
	}
	if e.Remaining == 1 {
		return fmt.Sprintf("not enough seats on trip %d: only 1 seat left, requested %d", e.TripID, e.Requested)
	}
	return fmt.Sprintf("not enough seats on trip %d: only %d seats left, requested %d", e.TripID, e.Remaining, e.Requested)
}

// Unwrap lets errors.Is(err, ErrConflict) match oversell errors.
func (e *SeatConflictError) Unwrap() error { return ErrConflict }
