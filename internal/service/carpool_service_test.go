package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
)

// Coordinates around Tehran: Azadi Square, a point ~1km away, and Mashhad
// (far outside any sensible radius).
var (
	azadi   = model.Location{Latitude: 35.6997, Longitude: 51.3380}
	nearby  = model.Location{Latitude: 35.7080, Longitude: 51.3420}
	karaj   = model.Location{Latitude: 35.8327, Longitude: 50.9916}
	mashhad = model.Location{Latitude: 36.2605, Longitude: 59.6168}
)

func candidateRow(rows *sqlmock.Rows, id uint64, origin, dest model.Location, start time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, driverID, 2,
		origin.Latitude, origin.Longitude, "origin",
		dest.Latitude, dest.Longitude, "dest",
		start, start.Add(time.Hour), 3, 2,
		150000, string(model.TripScheduled), nil, start.Add(-24*time.Hour), start.Add(-24*time.Hour),
	)
}

func TestSearchFiltersAndOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	departAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(tripCols)
	// Trip 1 departs from a point near Azadi, trip 2 exactly from Azadi,
	// trip 3 from Mashhad and must be filtered out.
	candidateRow(rows, 1, nearby, karaj, departAt.Add(30*time.Minute))
	candidateRow(rows, 2, azadi, karaj, departAt.Add(-30*time.Minute))
	candidateRow(rows, 3, mashhad, karaj, departAt)

	mock.ExpectQuery(`SELECT (.+) FROM trips\s+WHERE status = (.+) AND available_seats > 0`).
		WillReturnRows(rows)

	svc := NewCarpoolService(repository.NewTripRepo(db))
	matches, err := svc.Search(context.Background(), SearchInput{
		Origin:      azadi,
		Destination: karaj,
		DepartAt:    departAt,
		RadiusKm:    5,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(matches))
	}
	// Trip 2 departs exactly from the searched origin, so its combined
	// distance is smaller and it sorts first.
	if matches[0].Trip.ID != 2 || matches[1].Trip.ID != 1 {
		t.Errorf("order: got [%d %d], want [2 1]", matches[0].Trip.ID, matches[1].Trip.ID)
	}
	if matches[0].CombinedKm() >= matches[1].CombinedKm() {
		t.Error("matches not ordered by combined distance")
	}
}

func TestSearchLimitCapsResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	departAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(tripCols)
	for i := uint64(1); i <= 5; i++ {
		candidateRow(rows, i, azadi, karaj, departAt.Add(time.Duration(i)*time.Minute))
	}
	mock.ExpectQuery(`SELECT (.+) FROM trips\s+WHERE status = (.+) AND available_seats > 0`).
		WillReturnRows(rows)

	svc := NewCarpoolService(repository.NewTripRepo(db))
	matches, err := svc.Search(context.Background(), SearchInput{
		Origin:      azadi,
		Destination: karaj,
		DepartAt:    departAt,
		Limit:       3,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("limit not applied: got %d matches", len(matches))
	}
	// Equal distances fall back to departure time ordering.
	if matches[0].Trip.ID != 1 {
		t.Errorf("tie-break by start time: got trip %d first", matches[0].Trip.ID)
	}
}

func TestSearchRejectsBadCoordinates(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := NewCarpoolService(repository.NewTripRepo(db))
	_, err = svc.Search(context.Background(), SearchInput{
		Origin:      model.Location{Latitude: 95},
		Destination: karaj,
		DepartAt:    time.Now(),
	})
	var verr model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
