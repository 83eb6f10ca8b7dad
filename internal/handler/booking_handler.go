package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/service"
)

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler returns a BookingHandler backed by the given service.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Create handles POST /bookings. The response carries the plain pickup
// code exactly once; only its hash survives in the database.
func (h *BookingHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.CreateBookingInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, code, err := h.bookings.CreateBooking(c.Request().Context(), p, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking":     b,
		"pickup_code": code,
	})
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.bookings.GetBooking(c.Request().Context(), p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListMine handles GET /bookings/mine.
func (h *BookingHandler) ListMine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.bookings.ListMyBookings(c.Request().Context(), p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// ListByTrip handles GET /trips/:id/bookings for the trip's driver.
func (h *BookingHandler) ListByTrip(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	tripID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.bookings.ListTripBookings(c.Request().Context(), p, tripID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Confirm handles POST /bookings/:id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.bookings.Confirm)
}

// Complete handles POST /bookings/:id/complete.
func (h *BookingHandler) Complete(c echo.Context) error {
	return h.transition(c, h.bookings.Complete)
}

// NoShow handles POST /bookings/:id/no-show.
func (h *BookingHandler) NoShow(c echo.Context) error {
	return h.transition(c, h.bookings.MarkNoShow)
}

func (h *BookingHandler) transition(c echo.Context, fn func(ctx context.Context, p model.Principal, id uint64) (*model.Booking, error)) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := fn(c.Request().Context(), p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /bookings/:id/reject.
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.withReason(c, h.bookings.Reject)
}

// Cancel handles POST /bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.withReason(c, h.bookings.Cancel)
}

func (h *BookingHandler) withReason(c echo.Context, fn func(ctx context.Context, p model.Principal, id uint64, reason string) (*model.Booking, error)) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := fn(c.Request().Context(), p, id, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type pickupRequest struct {
	Code string `json:"code"`
}

// Pickup handles POST /bookings/:id/pickup. The driver submits the
// passenger's code; a match starts the ride.
func (h *BookingHandler) Pickup(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req pickupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Code) != 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "pickup code must be 6 digits")
	}
	b, err := h.bookings.VerifyPickup(c.Request().Context(), p, id, req.Code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// UpdateDetails handles PATCH /bookings/:id.
func (h *BookingHandler) UpdateDetails(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateDetailsInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.bookings.UpdateDetails(c.Request().Context(), p, id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type rateRequest struct {
	Rating uint8 `json:"rating"`
}

// RateDriver handles POST /bookings/:id/rate-driver.
func (h *BookingHandler) RateDriver(c echo.Context) error {
	return h.rate(c, h.bookings.RateDriver)
}

// RatePassenger handles POST /bookings/:id/rate-passenger.
func (h *BookingHandler) RatePassenger(c echo.Context) error {
	return h.rate(c, h.bookings.RatePassenger)
}

func (h *BookingHandler) rate(c echo.Context, fn func(ctx context.Context, p model.Principal, id uint64, rating uint8) error) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req rateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := fn(c.Request().Context(), p, id, req.Rating); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
