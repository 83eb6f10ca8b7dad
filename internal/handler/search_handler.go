package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/service"
)

// SearchHandler exposes the carpool matching endpoint.
type SearchHandler struct {
	carpool *service.CarpoolService
}

// NewSearchHandler returns a SearchHandler backed by the given service.
func NewSearchHandler(carpool *service.CarpoolService) *SearchHandler {
	return &SearchHandler{carpool: carpool}
}

// matchResponse is one search hit with the endpoint distances exposed.
type matchResponse struct {
	Trip          model.Trip `json:"trip"`
	OriginKm      float64    `json:"origin_distance_km"`
	DestinationKm float64    `json:"destination_distance_km"`
	CombinedKm    float64    `json:"combined_distance_km"`
}

// Search handles GET /trips/search. All parameters come from the query
// string so responses stay cacheable:
//
//	origin_lat, origin_lng, dest_lat, dest_lng – required coordinates
//	depart_at                                  – required RFC 3339 departure
//	radius_km, limit                           – optional, clamped defaults
func (h *SearchHandler) Search(c echo.Context) error {
	in, err := bindSearch(c)
	if err != nil {
		return err
	}
	matches, err := h.carpool.Search(c.Request().Context(), in)
	if err != nil {
		return fail(c, err)
	}
	out := make([]matchResponse, len(matches))
	for i, m := range matches {
		out[i] = matchResponse{
			Trip:          m.Trip,
			OriginKm:      round2(m.OriginKm),
			DestinationKm: round2(m.DestinationKm),
			CombinedKm:    round2(m.CombinedKm()),
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"matches": out})
}

func bindSearch(c echo.Context) (service.SearchInput, error) {
	var in service.SearchInput
	var err error
	if in.Origin.Latitude, err = queryFloat(c, "origin_lat"); err != nil {
		return in, err
	}
	if in.Origin.Longitude, err = queryFloat(c, "origin_lng"); err != nil {
		return in, err
	}
	if in.Destination.Latitude, err = queryFloat(c, "dest_lat"); err != nil {
		return in, err
	}
	if in.Destination.Longitude, err = queryFloat(c, "dest_lng"); err != nil {
		return in, err
	}
	departAt, err := time.Parse(time.RFC3339, c.QueryParam("depart_at"))
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, "depart_at must be RFC 3339")
	}
	in.DepartAt = departAt
	if v := c.QueryParam("radius_km"); v != "" {
		if in.RadiusKm, err = strconv.ParseFloat(v, 64); err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, "invalid radius_km")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	return in, nil
}

func queryFloat(c echo.Context, name string) (float64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is required")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return f, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
