package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// WaypointRepo persists the ordered sub-stops of a trip. The table is
// append-only from this service's point of view.
type WaypointRepo struct {
	db *sql.DB
}

// NewWaypointRepo returns a new WaypointRepo bound to the given database.
func NewWaypointRepo(db *sql.DB) *WaypointRepo { return &WaypointRepo{db: db} }

// Append inserts one waypoint and populates its generated ID and creation
// timestamp.
func (r *WaypointRepo) Append(ctx context.Context, w *model.Waypoint) error {
	const q = `INSERT INTO waypoints (trip_id, kind, lat, lng, address, seq, distance_from_start_km)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		w.TripID, w.Kind,
		w.Location.Latitude, w.Location.Longitude, w.Location.Address,
		w.Seq, w.DistanceFromStartKm,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return r.db.QueryRowContext(ctx, `SELECT created_at FROM waypoints WHERE id = ?`, w.ID).Scan(&w.CreatedAt)
}

// ListByTrip returns the trip's waypoints. Rows come back in insertion
// order; callers apply model.SortWaypoints when sequence numbers matter.
func (r *WaypointRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.Waypoint, error) {
	const q = `SELECT id, trip_id, kind, lat, lng, address, seq, distance_from_start_km, created_at
		FROM waypoints WHERE trip_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Waypoint, 0)
	for rows.Next() {
		var w model.Waypoint
		var seq sql.NullInt64
		var dist sql.NullFloat64
		if err := rows.Scan(
			&w.ID, &w.TripID, &w.Kind,
			&w.Location.Latitude, &w.Location.Longitude, &w.Location.Address,
			&seq, &dist, &w.CreatedAt,
		); err != nil {
			return nil, err
		}
		if seq.Valid {
			v := uint32(seq.Int64)
			w.Seq = &v
		}
		if dist.Valid {
			v := dist.Float64
			w.DistanceFromStartKm = &v
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
