package model

import (
	"testing"
	"time"
)

func validTrip(now time.Time) Trip {
	return Trip{
		DriverID:          1,
		VehicleID:         2,
		Origin:            Location{Latitude: 35.7, Longitude: 51.4, Address: "Tehran, Azadi Sq"},
		Destination:       Location{Latitude: 35.8, Longitude: 50.9, Address: "Karaj, Central Terminal"},
		StartTime:         now.Add(2 * time.Hour),
		EndTime:           now.Add(3 * time.Hour),
		TotalSeats:        3,
		PricePerSeatCents: 150000,
	}
}

func TestTripValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := validTrip(now)
	if err := ok.Validate(now); err != nil {
		t.Fatalf("valid trip rejected: %v", err)
	}

	past := validTrip(now)
	past.StartTime = now.Add(-time.Hour)
	past.EndTime = now.Add(time.Hour)
	if err := past.Validate(now); err == nil {
		t.Error("trip starting in the past should be rejected")
	}

	inverted := validTrip(now)
	inverted.EndTime = inverted.StartTime.Add(-time.Minute)
	if err := inverted.Validate(now); err == nil {
		t.Error("end before start should be rejected")
	}

	zeroSeats := validTrip(now)
	zeroSeats.TotalSeats = 0
	if err := zeroSeats.Validate(now); err == nil {
		t.Error("zero seats should be rejected")
	}

	badLat := validTrip(now)
	badLat.Origin.Latitude = 91
	if err := badLat.Validate(now); err == nil {
		t.Error("latitude out of range should be rejected")
	}

	noAddr := validTrip(now)
	noAddr.Destination.Address = ""
	if err := noAddr.Validate(now); err == nil {
		t.Error("missing address should be rejected")
	}
}

func TestTripTransitions(t *testing.T) {
	cases := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripScheduled, TripInProgress, true},
		{TripScheduled, TripCancelled, true},
		{TripScheduled, TripCompleted, false},
		{TripInProgress, TripCompleted, true},
		{TripInProgress, TripCancelled, true},
		{TripInProgress, TripScheduled, false},
		{TripCompleted, TripCancelled, false},
		{TripCancelled, TripScheduled, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestDeparted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trip := validTrip(now)
	if trip.Departed(now) {
		t.Error("future trip reported as departed")
	}
	if !trip.Departed(trip.StartTime.Add(time.Second)) {
		t.Error("past departure not reported")
	}
}
