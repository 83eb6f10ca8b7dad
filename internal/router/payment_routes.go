package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/middleware"
	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// registerPayments mounts the webhook-style endpoints the payment
// collaborator calls with its service token. The token carries the ADMIN
// role; no rate limit applies since the caller is a trusted internal
// system.
func registerPayments(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1/payments",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/bookings/:id/paid", h.Payments.Paid)
	g.POST("/bookings/:id/refunded", h.Payments.Refunded)
	g.POST("/bookings/:id/failed", h.Payments.Failed)
}
