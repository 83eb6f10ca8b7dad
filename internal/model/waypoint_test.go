package model

import (
	"testing"
	"time"
)

func seq(v uint32) *uint32 { return &v }
func km(v float64) *float64 { return &v }

func TestSortWaypoints(t *testing.T) {
	wps := []Waypoint{
		{ID: 1, Seq: seq(3)},
		{ID: 2, Seq: seq(1)},
		{ID: 3}, // no sequence, sorts last
		{ID: 4, Seq: seq(2)},
	}
	SortWaypoints(wps)
	want := []uint64{2, 4, 1, 3}
	for i, id := range want {
		if wps[i].ID != id {
			t.Fatalf("position %d: got waypoint %d, want %d", i, wps[i].ID, id)
		}
	}
}

func TestSortWaypointsKeepsInsertionOrderWithoutSeq(t *testing.T) {
	wps := []Waypoint{{ID: 5}, {ID: 6}, {ID: 7}}
	SortWaypoints(wps)
	for i, id := range []uint64{5, 6, 7} {
		if wps[i].ID != id {
			t.Fatalf("insertion order not preserved at %d: got %d", i, wps[i].ID)
		}
	}
}

func TestWaypointETAsProportionalToDistance(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	wps := []Waypoint{
		{DistanceFromStartKm: km(25)},
		{DistanceFromStartKm: km(50)},
		{DistanceFromStartKm: km(100)},
	}
	etas := WaypointETAs(start, 2*time.Hour, wps)
	want := []time.Time{
		start.Add(30 * time.Minute),
		start.Add(time.Hour),
		start.Add(2 * time.Hour),
	}
	for i := range want {
		if !etas[i].Equal(want[i]) {
			t.Errorf("eta %d: got %v, want %v", i, etas[i], want[i])
		}
	}
}

func TestWaypointETAsEvenFractionsWithoutDistances(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	wps := []Waypoint{{}, {DistanceFromStartKm: km(10)}, {}}
	etas := WaypointETAs(start, 4*time.Hour, wps)
	want := []time.Time{
		start.Add(time.Hour),
		start.Add(2 * time.Hour),
		start.Add(3 * time.Hour),
	}
	for i := range want {
		if !etas[i].Equal(want[i]) {
			t.Errorf("eta %d: got %v, want %v", i, etas[i], want[i])
		}
	}
}

func TestWaypointValidate(t *testing.T) {
	w := Waypoint{Kind: WaypointPickup, Location: Location{Latitude: 35.7, Longitude: 51.4, Address: "Azadi Sq"}}
	if err := w.Validate(); err != nil {
		t.Fatalf("valid waypoint rejected: %v", err)
	}
	w.Kind = "detour"
	if err := w.Validate(); err == nil {
		t.Error("unknown kind should be rejected")
	}
}
