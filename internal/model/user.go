package model

import "time"

// Role is the closed set of principal roles the service recognises. Roles
// arrive in the JWT "role" claim; credential checks happen upstream in the
// identity collaborator, never here.
type Role string

const (
	RolePassenger Role = "PASSENGER"
	RoleDriver    Role = "DRIVER"
	RoleAdmin     Role = "ADMIN"
)

// Action names an operation gated by the capability table. Ownership checks
// (is this the booking's passenger, is this the trip's driver) are applied
// on top of the capability lookup by the service layer.
type Action string

const (
	ActionTripManage           Action = "trip.manage"
	ActionBookingCreate        Action = "booking.create"
	ActionBookingConfirm       Action = "booking.confirm"
	ActionBookingReject        Action = "booking.reject"
	ActionBookingCancel        Action = "booking.cancel"
	ActionBookingPickup        Action = "booking.pickup"
	ActionBookingComplete      Action = "booking.complete"
	ActionBookingUpdate        Action = "booking.update"
	ActionBookingRateDriver    Action = "booking.rate_driver"
	ActionBookingRatePassenger Action = "booking.rate_passenger"
	ActionPaymentSignal        Action = "payment.signal"
)

// capabilities maps each role to the set of actions it may perform. A
// lookup table keeps authorization decisions in one place instead of
// scattering role comparisons through the service code.
var capabilities = map[Role]map[Action]bool{
	RolePassenger: {
		ActionBookingCreate:     true,
		ActionBookingCancel:     true,
		ActionBookingUpdate:     true,
		ActionBookingRateDriver: true,
	},
	RoleDriver: {
		ActionTripManage:           true,
		ActionBookingConfirm:       true,
		ActionBookingReject:        true,
		ActionBookingCancel:        true,
		ActionBookingPickup:        true,
		ActionBookingComplete:      true,
		ActionBookingRatePassenger: true,
	},
	RoleAdmin: {
		ActionTripManage:           true,
		ActionBookingCreate:        true,
		ActionBookingConfirm:       true,
		ActionBookingReject:        true,
		ActionBookingCancel:        true,
		ActionBookingPickup:        true,
		ActionBookingComplete:      true,
		ActionBookingUpdate:        true,
		ActionBookingRateDriver:    true,
		ActionBookingRatePassenger: true,
		ActionPaymentSignal:        true,
	},
}

// Can reports whether the role is allowed to perform the action.
func (r Role) Can(a Action) bool { return capabilities[r][a] }

// Principal is the already-authenticated caller, as extracted from JWT
// claims by the middleware.
type Principal struct {
	UserID uint64
	Role   Role
}

// User is a marketplace participant. The rating aggregate is maintained for
// drivers only: passenger ratings are stored on bookings but never folded
// into a per-user average, mirroring the asymmetry of the original product.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Email/Phone – contact details owned by the identity collaborator.
//  Role        – PASSENGER, DRIVER or ADMIN.
//  RatingAvg   – running average of ratings received as a driver.
//  RatingCount – number of ratings folded into RatingAvg.
type User struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Role        Role      `json:"role"`
	RatingAvg   float64   `json:"rating_avg"`
	RatingCount uint64    `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
