package model

import (
	"math"
	"testing"
)

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelledByPassenger, true},
		{BookingPending, BookingCancelledByDriver, true},
		{BookingPending, BookingNoShow, true},
		{BookingPending, BookingInProgress, false},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingInProgress, true},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingNoShow, true},
		{BookingInProgress, BookingCompleted, true},
		{BookingInProgress, BookingCancelledByPassenger, false},
		{BookingCompleted, BookingCancelledByDriver, false},
		{BookingCancelledByPassenger, BookingConfirmed, false},
		{BookingNoShow, BookingCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalStatesAcceptNoTransition(t *testing.T) {
	all := []BookingStatus{
		BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted,
		BookingCancelledByPassenger, BookingCancelledByDriver, BookingNoShow,
	}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			if from.CanTransition(to) {
				t.Errorf("terminal state %s allows transition to %s", from, to)
			}
		}
	}
}

func TestActiveAndReleasesSeatsPartitionCapacity(t *testing.T) {
	// Every status either still accounts for reserved seats or has
	// released them back; completed consumed its seats and stays active.
	all := []BookingStatus{
		BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted,
		BookingCancelledByPassenger, BookingCancelledByDriver, BookingNoShow,
	}
	for _, s := range all {
		if s.Active() == s.ReleasesSeats() {
			t.Errorf("status %s: active=%v releases=%v, expected exactly one", s, s.Active(), s.ReleasesSeats())
		}
	}
	if !BookingCompleted.Active() {
		t.Error("completed bookings must stay active for the seat-sum invariant")
	}
	if !BookingNoShow.ReleasesSeats() {
		t.Error("no-show must release seats back to the trip")
	}
}

func TestFoldRating(t *testing.T) {
	avg, count := FoldRating(0, 0, 4)
	if avg != 4 || count != 1 {
		t.Fatalf("first rating: got avg=%v count=%d", avg, count)
	}
	avg, count = FoldRating(avg, count, 2)
	if avg != 3 || count != 2 {
		t.Fatalf("second rating: got avg=%v count=%d", avg, count)
	}
	avg, count = FoldRating(avg, count, 5)
	if math.Abs(avg-11.0/3.0) > 1e-9 || count != 3 {
		t.Fatalf("third rating: got avg=%v count=%d", avg, count)
	}
}

func TestValidRating(t *testing.T) {
	for r := uint8(1); r <= 5; r++ {
		if !ValidRating(r) {
			t.Errorf("rating %d should be valid", r)
		}
	}
	if ValidRating(0) || ValidRating(6) {
		t.Error("ratings outside 1-5 should be invalid")
	}
}
