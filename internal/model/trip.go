package model

import "time"

// TripStatus is the lifecycle state of a driver-offered trip.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// tripTransitions lists the allowed status changes for a trip. A trip
// advances scheduled -> in_progress -> completed via driver or admin action
// and may be cancelled, explicitly or as a side effect of deletion while
// bookings exist, before it completes.
var tripTransitions = map[TripStatus][]TripStatus{
	TripScheduled:  {TripInProgress, TripCancelled},
	TripInProgress: {TripCompleted, TripCancelled},
}

// CanTransition reports whether a trip in state s may move to state to.
func (s TripStatus) CanTransition(to TripStatus) bool {
	for _, t := range tripTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Trip represents a driver-offered ride with fixed seat capacity, route and
// schedule. Seat counts are mutated only through the trip repository's
// reserve/release operations so the invariant
//
//	available_seats + sum(active booking seats) == total_seats
//
// holds under concurrent bookings.
//
// Fields:
//  ID                – primary key identifier.
//  DriverID          – user offering the trip.
//  VehicleID         – vehicle the trip is driven with.
//  Origin            – departure point (lat/lng/address, all required).
//  Destination       – arrival point (lat/lng/address, all required).
//  StartTime         – scheduled departure; must be in the future at creation.
//  EndTime           – estimated arrival; strictly after StartTime.
//  TotalSeats        – capacity fixed at creation.
//  AvailableSeats    – seats not reserved by an active booking.
//  PricePerSeatCents – price of one seat in cents.
//  Status            – lifecycle state (see TripStatus).
//  RouteGeom         – optional WKB-encoded LineString of the planned route.
//  CreatedAt/UpdatedAt/DeletedAt – audit timestamps; DeletedAt marks soft
//  deletion so historical bookings keep a referencable trip row.
type Trip struct {
	ID                uint64     `json:"id"`
	DriverID          uint64     `json:"driver_id"`
	VehicleID         uint64     `json:"vehicle_id"`
	Origin            Location   `json:"origin"`
	Destination       Location   `json:"destination"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	TotalSeats        uint32     `json:"total_seats"`
	AvailableSeats    uint32     `json:"available_seats"`
	PricePerSeatCents uint32     `json:"price_per_seat_cents"`
	Status            TripStatus `json:"status"`
	RouteGeom         []byte     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"-"`
}

// Validate checks the creation-time invariants of a trip.
func (t *Trip) Validate(now time.Time) error {
	if err := t.Origin.Validate("origin"); err != nil {
		return err
	}
	if err := t.Destination.Validate("destination"); err != nil {
		return err
	}
	if t.TotalSeats < 1 {
		return ValidationError("total_seats must be at least 1")
	}
	if !t.EndTime.After(t.StartTime) {
		return ValidationError("end_time must be after start_time")
	}
	if !t.StartTime.After(now) {
		return ValidationError("start_time must be in the future")
	}
	return nil
}

// Departed reports whether the trip's scheduled departure has passed.
func (t *Trip) Departed(now time.Time) bool { return t.StartTime.Before(now) }

// EstimatedDuration is the planned travel time derived from the schedule.
func (t *Trip) EstimatedDuration() time.Duration { return t.EndTime.Sub(t.StartTime) }
