package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/service"
)

// TripHandler exposes trip lifecycle and waypoint endpoints.
type TripHandler struct {
	trips *service.TripService
}

// NewTripHandler returns a TripHandler backed by the given service.
func NewTripHandler(trips *service.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

// tripResponse is a trip plus its route decoded back to GeoJSON.
type tripResponse struct {
	*model.Trip
	Route json.RawMessage `json:"route,omitempty"`
}

func newTripResponse(t *model.Trip) tripResponse {
	return tripResponse{Trip: t, Route: routeToGeoJSON(t.RouteGeom)}
}

type createTripRequest struct {
	VehicleID         uint64          `json:"vehicle_id"`
	Origin            model.Location  `json:"origin"`
	Destination       model.Location  `json:"destination"`
	StartTime         time.Time       `json:"start_time"`
	EndTime           time.Time       `json:"end_time"`
	TotalSeats        uint32          `json:"total_seats"`
	PricePerSeatCents uint32          `json:"price_per_seat_cents"`
	Route             json.RawMessage `json:"route"`
}

// Create handles POST /trips.
func (h *TripHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	routeWKB, err := routeFromGeoJSON(req.Route)
	if err != nil {
		return fail(c, err)
	}
	t, err := h.trips.CreateTrip(c.Request().Context(), p, service.CreateTripInput{
		VehicleID:         req.VehicleID,
		Origin:            req.Origin,
		Destination:       req.Destination,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		TotalSeats:        req.TotalSeats,
		PricePerSeatCents: req.PricePerSeatCents,
		RouteGeom:         routeWKB,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newTripResponse(t))
}

// Get handles GET /trips/:id.
func (h *TripHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.trips.GetTrip(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newTripResponse(t))
}

// ListMine handles GET /trips/mine.
func (h *TripHandler) ListMine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	trips, err := h.trips.ListMyTrips(c.Request().Context(), p)
	if err != nil {
		return fail(c, err)
	}
	out := make([]tripResponse, len(trips))
	for i := range trips {
		out[i] = newTripResponse(&trips[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": out})
}

type updateTripRequest struct {
	VehicleID         *uint64         `json:"vehicle_id"`
	Origin            *model.Location `json:"origin"`
	Destination       *model.Location `json:"destination"`
	StartTime         *time.Time      `json:"start_time"`
	EndTime           *time.Time      `json:"end_time"`
	TotalSeats        *uint32         `json:"total_seats"`
	PricePerSeatCents *uint32         `json:"price_per_seat_cents"`
	Route             json.RawMessage `json:"route"`
}

// Update handles PATCH /trips/:id.
func (h *TripHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	routeWKB, err := routeFromGeoJSON(req.Route)
	if err != nil {
		return fail(c, err)
	}
	t, err := h.trips.UpdateTrip(c.Request().Context(), p, id, service.UpdateTripInput{
		VehicleID:         req.VehicleID,
		Origin:            req.Origin,
		Destination:       req.Destination,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		TotalSeats:        req.TotalSeats,
		PricePerSeatCents: req.PricePerSeatCents,
		RouteGeom:         routeWKB,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newTripResponse(t))
}

// Start handles POST /trips/:id/start.
func (h *TripHandler) Start(c echo.Context) error {
	return h.transition(c, h.trips.StartTrip)
}

// Complete handles POST /trips/:id/complete.
func (h *TripHandler) Complete(c echo.Context) error {
	return h.transition(c, h.trips.CompleteTrip)
}

func (h *TripHandler) transition(c echo.Context, fn func(ctx context.Context, p model.Principal, id uint64) (*model.Trip, error)) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	t, err := fn(c.Request().Context(), p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newTripResponse(t))
}

type cancelTripRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /trips/:id/cancel. All active bookings on the trip
// are cancelled with it.
func (h *TripHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.trips.CancelTrip(c.Request().Context(), p, id, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newTripResponse(t))
}

// Delete handles DELETE /trips/:id.
func (h *TripHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.trips.DeleteTrip(c.Request().Context(), p, id, req.Reason); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type appendWaypointRequest struct {
	Kind                model.WaypointKind `json:"kind"`
	Location            model.Location     `json:"location"`
	Seq                 *uint32            `json:"seq"`
	DistanceFromStartKm *float64           `json:"distance_from_start_km"`
}

// AppendWaypoint handles POST /trips/:id/waypoints.
func (h *TripHandler) AppendWaypoint(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req appendWaypointRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	w := &model.Waypoint{
		TripID:              id,
		Kind:                req.Kind,
		Location:            req.Location,
		Seq:                 req.Seq,
		DistanceFromStartKm: req.DistanceFromStartKm,
	}
	if err := h.trips.AppendWaypoint(c.Request().Context(), p, w); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

// ListWaypoints handles GET /trips/:id/waypoints. Waypoints come back in
// travel order with estimated arrival times.
func (h *TripHandler) ListWaypoints(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	wps, err := h.trips.ListWaypoints(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"waypoints": wps})
}
