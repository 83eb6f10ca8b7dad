package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/middleware"
	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// registerPassenger mounts passenger-scoped endpoints under /v1. Admins
// pass the role gate too so support staff can act on a passenger's behalf;
// ownership checks inside the services still apply.
func registerPassenger(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RolePassenger, model.RoleAdmin),
		rateLimit,
	)
	g.POST("/bookings", h.Bookings.Create)
	g.GET("/my-bookings", h.Bookings.ListMine)
	g.PATCH("/bookings/:id", h.Bookings.UpdateDetails)
	g.POST("/bookings/:id/rate-driver", h.Bookings.RateDriver)
}
