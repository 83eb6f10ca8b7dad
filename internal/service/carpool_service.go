package service

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/carpool-marketplace/internal/geo"
	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
)

// Search radius and result-size bounds. Requests outside the radius bounds
// are clamped, not rejected.
const (
	DefaultRadiusKm = 5.0
	MinRadiusKm     = 0.1
	MaxRadiusKm     = 50.0
	DefaultLimit    = 20
	MaxLimit        = 100
)

// CarpoolService answers passenger searches for bookable trips near a
// desired origin and destination. The database narrows candidates by
// departure window and free seats; exact Haversine proximity and ordering
// happen in memory.
type CarpoolService struct {
	trips *repository.TripRepo
}

// NewCarpoolService constructs the search service.
func NewCarpoolService(trips *repository.TripRepo) *CarpoolService {
	if trips == nil {
		panic("nil repository passed to NewCarpoolService")
	}
	return &CarpoolService{trips: trips}
}

// SearchInput carries the passenger's desired ride.
type SearchInput struct {
	Origin      model.Location `json:"origin"`
	Destination model.Location `json:"destination"`
	DepartAt    time.Time      `json:"depart_at"`
	RadiusKm    float64        `json:"radius_km"`
	Limit       int            `json:"limit"`
}

// Search returns scheduled trips with seats free whose departure falls
// inside the time window around DepartAt and whose origin and destination
// both lie within the radius of the passenger's endpoints. Matches are
// ordered by combined distance, then departure time, then trip ID, and
// capped at the limit.
//
// Only coordinates are needed here, so a search request may omit addresses;
// the passenger commits to exact pickup/dropoff points at booking time.
func (s *CarpoolService) Search(ctx context.Context, in SearchInput) ([]geo.Match, error) {
	if err := validateSearchPoint("origin", in.Origin); err != nil {
		return nil, err
	}
	if err := validateSearchPoint("destination", in.Destination); err != nil {
		return nil, err
	}
	if in.DepartAt.IsZero() {
		return nil, model.ValidationError("depart_at is required")
	}

	radius := in.RadiusKm
	if radius == 0 {
		radius = DefaultRadiusKm
	}
	if radius < MinRadiusKm {
		radius = MinRadiusKm
	}
	if radius > MaxRadiusKm {
		radius = MaxRadiusKm
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	from := in.DepartAt.Add(-geo.TimeWindow)
	to := in.DepartAt.Add(geo.TimeWindow)
	candidates, err := s.trips.SearchCandidates(ctx, from, to)
	if err != nil {
		return nil, err
	}

	matches := geo.FilterByProximity(in.Origin, in.Destination, radius, candidates)
	sort.Slice(matches, func(i, j int) bool {
		di, dj := matches[i].CombinedKm(), matches[j].CombinedKm()
		if di != dj {
			return di < dj
		}
		if !matches[i].Trip.StartTime.Equal(matches[j].Trip.StartTime) {
			return matches[i].Trip.StartTime.Before(matches[j].Trip.StartTime)
		}
		return matches[i].Trip.ID < matches[j].Trip.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// validateSearchPoint checks coordinate ranges without requiring an
// address.
func validateSearchPoint(name string, l model.Location) error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return model.Validationf("%s latitude %f out of range [-90, 90]", name, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return model.Validationf("%s longitude %f out of range [-180, 180]", name, l.Longitude)
	}
	return nil
}
