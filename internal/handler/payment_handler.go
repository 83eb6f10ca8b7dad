package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/service"
)

// PaymentHandler receives payment outcome signals from the payment
// collaborator. The routes are admin-gated; the collaborator authenticates
// with a service token carrying the ADMIN role. Signals are idempotent,
// retried deliveries are acknowledged without a second state change.
type PaymentHandler struct {
	bookings *service.BookingService
}

// NewPaymentHandler returns a PaymentHandler backed by the given service.
func NewPaymentHandler(bookings *service.BookingService) *PaymentHandler {
	return &PaymentHandler{bookings: bookings}
}

// Paid handles POST /payments/bookings/:id/paid.
func (h *PaymentHandler) Paid(c echo.Context) error {
	return h.signal(c, h.bookings.MarkPaid)
}

// Refunded handles POST /payments/bookings/:id/refunded.
func (h *PaymentHandler) Refunded(c echo.Context) error {
	return h.signal(c, h.bookings.MarkRefunded)
}

// Failed handles POST /payments/bookings/:id/failed.
func (h *PaymentHandler) Failed(c echo.Context) error {
	return h.signal(c, h.bookings.MarkPaymentFailed)
}

func (h *PaymentHandler) signal(c echo.Context, fn func(ctx context.Context, bookingID uint64) error) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := fn(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
