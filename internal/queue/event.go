// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair moving them. The core emits events;
// delivery and formatting of user-facing notifications belong to the
// notification collaborator consuming them.
package queue

// BookingCreatedEvent is published when a booking is created and seats have
// been reserved. It carries enough information for downstream consumers to
// notify both parties without querying the primary database.
type BookingCreatedEvent struct {
	BookingID       uint64 `json:"booking_id"`
	TripID          uint64 `json:"trip_id"`
	PassengerID     uint64 `json:"passenger_id"`
	DriverID        uint64 `json:"driver_id"`
	Seats           uint32 `json:"seats"`
	TotalPriceCents uint32 `json:"total_price_cents"`
	PickupAddress   string `json:"pickup_address"`
	DropoffAddress  string `json:"dropoff_address"`
	TripStartsAt    string `json:"trip_starts_at"`
	CreatedAt       string `json:"created_at"`
}

// BookingStatusChangedEvent is published on every booking lifecycle
// transition after the transaction that performed it has committed.
type BookingStatusChangedEvent struct {
	BookingID     uint64 `json:"booking_id"`
	TripID        uint64 `json:"trip_id"`
	PassengerID   uint64 `json:"passenger_id"`
	DriverID      uint64 `json:"driver_id"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	PaymentStatus string `json:"payment_status"`
	Reason        string `json:"reason,omitempty"`
	ChangedAt     string `json:"changed_at"`
}
