package model

import "time"

// BookingStatus is the lifecycle state of a passenger's booking.
type BookingStatus string

const (
	BookingPending              BookingStatus = "pending"
	BookingConfirmed            BookingStatus = "confirmed"
	BookingInProgress           BookingStatus = "in_progress"
	BookingCompleted            BookingStatus = "completed"
	BookingCancelledByPassenger BookingStatus = "cancelled_by_passenger"
	BookingCancelledByDriver    BookingStatus = "cancelled_by_driver"
	BookingNoShow               BookingStatus = "no_show"
)

// PaymentStatus tracks the signal last received from the payment
// collaborator. The core never talks to the payment provider itself.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// bookingTransitions is the closed transition table for the booking state
// machine. Anything not listed here is an invalid-state error.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelledByPassenger, BookingCancelledByDriver, BookingNoShow},
	BookingConfirmed:  {BookingInProgress, BookingCompleted, BookingCancelledByPassenger, BookingCancelledByDriver, BookingNoShow},
	BookingInProgress: {BookingCompleted},
}

// CanTransition reports whether a booking in state s may move to state to.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a final state. Seats reserved by a booking
// are released exactly once, on the transition into a cancellation state;
// the terminal check is the idempotence guard against double release.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelledByPassenger, BookingCancelledByDriver, BookingNoShow:
		return true
	}
	return false
}

// Active reports whether the booking currently accounts for reserved seats
// on its trip. Completed bookings stay active for the seat-sum invariant:
// their seats were consumed, not returned.
func (s BookingStatus) Active() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted:
		return true
	}
	return false
}

// ReleasesSeats reports whether entering state s returns the booking's
// seats to the trip. No-show releases too: the seat-sum invariant counts
// only active bookings, so a no-show seat must flow back to the trip even
// though nobody can book it mid-ride.
func (s BookingStatus) ReleasesSeats() bool {
	return s == BookingCancelledByPassenger || s == BookingCancelledByDriver || s == BookingNoShow
}

// Booking is a passenger's reservation of one or more seats on a trip.
//
// Fields:
//  ID              – primary key identifier.
//  TripID          – trip the seats are reserved on.
//  PassengerID     – user who booked.
//  Seats           – number of seats reserved; fixed at creation.
//  Pickup/Dropoff  – where the passenger joins and leaves the trip.
//  TotalPriceCents – trip price per seat times Seats, computed once.
//  Status          – lifecycle state (see BookingStatus).
//  PaymentStatus   – last payment signal received.
//  PickupCodeHash  – bcrypt hash of the 6-digit pickup code; the plain code
//                    is returned to the passenger exactly once, at creation.
//  Notes/BaggageCount – free-form details the passenger may update while
//                    the booking is still pending or confirmed.
//  DriverRating    – 1-5 rating the passenger gave the driver.
//  PassengerRating – 1-5 rating the driver gave the passenger.
//  CancelReason    – optional reason recorded on rejection/cancellation.
//  ActualDropoffAt – recorded when the driver completes the booking.
type Booking struct {
	ID                  uint64        `json:"id"`
	TripID              uint64        `json:"trip_id"`
	PassengerID         uint64        `json:"passenger_id"`
	Seats               uint32        `json:"seats"`
	Pickup              Location      `json:"pickup"`
	Dropoff             Location      `json:"dropoff"`
	TotalPriceCents     uint32        `json:"total_price_cents"`
	Status              BookingStatus `json:"status"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	PickupCodeHash      string        `json:"-"`
	Notes               string        `json:"notes,omitempty"`
	BaggageCount        uint32        `json:"baggage_count"`
	DriverRating        *uint8        `json:"driver_rating,omitempty"`
	PassengerRating     *uint8        `json:"passenger_rating,omitempty"`
	ReviewedByPassenger bool          `json:"is_reviewed_by_passenger"`
	ReviewedByDriver    bool          `json:"is_reviewed_by_driver"`
	CancelReason        *string       `json:"cancel_reason,omitempty"`
	ActualDropoffAt     *time.Time    `json:"actual_dropoff_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	DeletedAt           *time.Time    `json:"-"`
}

// ValidRating reports whether r is inside the accepted 1..5 range.
func ValidRating(r uint8) bool { return r >= 1 && r <= 5 }

// FoldRating folds one new rating into a running average. It returns the
// updated average and count. Invoked transactionally alongside the rating
// write; there is no ambient aggregate state.
func FoldRating(oldAvg float64, oldCount uint64, rating uint8) (float64, uint64) {
	newCount := oldCount + 1
	newAvg := (oldAvg*float64(oldCount) + float64(rating)) / float64(newCount)
	return newAvg, newCount
}
