package model

import (
	"sort"
	"time"
)

// WaypointKind distinguishes pickup sub-stops from dropoff sub-stops.
type WaypointKind string

const (
	WaypointPickup  WaypointKind = "pickup"
	WaypointDropoff WaypointKind = "dropoff"
)

// Waypoint is an ordered sub-stop accumulated on a trip. Waypoints are
// append-only; this core never removes them.
type Waypoint struct {
	ID                  uint64       `json:"id"`
	TripID              uint64       `json:"trip_id"`
	Kind                WaypointKind `json:"kind"`
	Location            Location     `json:"location"`
	Seq                 *uint32      `json:"seq,omitempty"`
	DistanceFromStartKm *float64     `json:"distance_from_start_km,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Validate checks a waypoint before it is appended.
func (w *Waypoint) Validate() error {
	if w.Kind != WaypointPickup && w.Kind != WaypointDropoff {
		return Validationf("waypoint kind %q must be pickup or dropoff", w.Kind)
	}
	return w.Location.Validate("waypoint")
}

// SortWaypoints orders the list by sequence number when at least one
// waypoint carries one; waypoints without a sequence sort after those with
// one, keeping their insertion order. Without any sequence numbers the
// insertion order stands.
func SortWaypoints(wps []Waypoint) {
	anySeq := false
	for i := range wps {
		if wps[i].Seq != nil {
			anySeq = true
			break
		}
	}
	if !anySeq {
		return
	}
	sort.SliceStable(wps, func(i, j int) bool {
		a, b := wps[i].Seq, wps[j].Seq
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
}

// WaypointETAs estimates the arrival time at each waypoint. When every
// waypoint carries a distance from the trip start, the ETA is proportional
// to that distance against the largest one (the trip-length proxy).
// Otherwise arrival times are evenly distributed across the estimated
// duration in (index+1)/(count+1) fractions.
func WaypointETAs(start time.Time, estimated time.Duration, wps []Waypoint) []time.Time {
	etas := make([]time.Time, len(wps))
	if len(wps) == 0 {
		return etas
	}
	total := 0.0
	allDist := true
	for i := range wps {
		if wps[i].DistanceFromStartKm == nil {
			allDist = false
			break
		}
		if *wps[i].DistanceFromStartKm > total {
			total = *wps[i].DistanceFromStartKm
		}
	}
	if allDist && total > 0 {
		for i := range wps {
			frac := *wps[i].DistanceFromStartKm / total
			etas[i] = start.Add(time.Duration(float64(estimated) * frac))
		}
		return etas
	}
	for i := range wps {
		frac := float64(i+1) / float64(len(wps)+1)
		etas[i] = start.Add(time.Duration(float64(estimated) * frac))
	}
	return etas
}
