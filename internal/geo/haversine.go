// Package geo provides the pure geospatial functions behind carpool
// matching: great-circle distance and proximity filtering. Nothing in this
// package touches storage or clocks; callers pass everything in.
package geo

import (
	"math"
	"time"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// WGS84 coordinates using the Haversine formula. It is symmetric and zero
// for identical points. Good enough for coarse proximity filtering; it is
// not a routing distance.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Match is a candidate trip annotated with the exact distances from the
// requested origin and destination to the trip's own endpoints.
type Match struct {
	Trip          model.Trip `json:"trip"`
	OriginKm      float64    `json:"origin_distance_km"`
	DestinationKm float64    `json:"destination_distance_km"`
}

// CombinedKm is the sort key for search results.
func (m Match) CombinedKm() float64 { return m.OriginKm + m.DestinationKm }

// FilterByProximity computes exact distances for each candidate and keeps
// those whose origin AND destination both fall within radiusKm of the
// requested endpoints. Candidates are expected to be pre-filtered on
// status, seats and time window by the caller.
func FilterByProximity(origin, destination model.Location, radiusKm float64, candidates []model.Trip) []Match {
	out := make([]Match, 0, len(candidates))
	for _, t := range candidates {
		m := Match{
			Trip:          t,
			OriginKm:      DistanceKm(origin.Latitude, origin.Longitude, t.Origin.Latitude, t.Origin.Longitude),
			DestinationKm: DistanceKm(destination.Latitude, destination.Longitude, t.Destination.Latitude, t.Destination.Longitude),
		}
		if m.OriginKm <= radiusKm && m.DestinationKm <= radiusKm {
			out = append(out, m)
		}
	}
	return out
}

// TimeWindow is the half-width of the departure window used by the cheap
// pre-filter: trips starting within ±TimeWindow of the requested time are
// candidates.
const TimeWindow = 2 * time.Hour
