package geo

import (
	"math"
	"testing"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

func TestDistanceKmZeroForIdenticalPoints(t *testing.T) {
	if d := DistanceKm(37.7749, -122.4194, 37.7749, -122.4194); d != 0 {
		t.Fatalf("distance between identical points = %v, want 0", d)
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	ab := DistanceKm(37.7749, -122.4194, 37.3382, -121.8863)
	ba := DistanceKm(37.3382, -121.8863, 37.7749, -122.4194)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	// San Francisco to San Jose is roughly 67 km as the crow flies.
	d := DistanceKm(37.7749, -122.4194, 37.3382, -121.8863)
	if d < 60 || d > 75 {
		t.Fatalf("SF->SJ distance = %v km, want around 67", d)
	}
}

func TestFilterByProximityBothEndpointsMustMatch(t *testing.T) {
	origin := model.Location{Latitude: 37.7749, Longitude: -122.4194, Address: "SF"}
	dest := model.Location{Latitude: 37.3382, Longitude: -121.8863, Address: "SJ"}

	near := model.Trip{
		ID:          1,
		Origin:      model.Location{Latitude: 37.7755, Longitude: -122.4180, Address: "near SF"},
		Destination: model.Location{Latitude: 37.3390, Longitude: -121.8850, Address: "near SJ"},
	}
	// Origin matches but destination is ~40 km off; the midpoint being on
	// the way does not make this trip a match.
	farDest := model.Trip{
		ID:          2,
		Origin:      model.Location{Latitude: 37.7755, Longitude: -122.4180, Address: "near SF"},
		Destination: model.Location{Latitude: 37.6879, Longitude: -122.4702, Address: "Pacifica"},
	}

	got := FilterByProximity(origin, dest, 5, []model.Trip{near, farDest})
	if len(got) != 1 || got[0].Trip.ID != 1 {
		t.Fatalf("FilterByProximity kept %v, want only trip 1", got)
	}
	if got[0].OriginKm > 5 || got[0].DestinationKm > 5 {
		t.Fatalf("match distances out of radius: %+v", got[0])
	}
}
