package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/middleware"
	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// registerDriver mounts driver-scoped trip management and the booking
// transitions a driver performs. A few routes are shared with passengers
// (get, cancel); those accept all three roles and rely on the service
// layer's ownership checks to pick the right behaviour.
func registerDriver(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	driver := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleDriver, model.RoleAdmin),
		rateLimit,
	)
	driver.POST("/trips", h.Trips.Create)
	driver.GET("/my-trips", h.Trips.ListMine)
	driver.PATCH("/trips/:id", h.Trips.Update)
	driver.POST("/trips/:id/start", h.Trips.Start)
	driver.POST("/trips/:id/complete", h.Trips.Complete)
	driver.POST("/trips/:id/cancel", h.Trips.Cancel)
	driver.DELETE("/trips/:id", h.Trips.Delete)
	driver.POST("/trips/:id/waypoints", h.Trips.AppendWaypoint)
	driver.GET("/trips/:id/bookings", h.Bookings.ListByTrip)

	driver.POST("/bookings/:id/confirm", h.Bookings.Confirm)
	driver.POST("/bookings/:id/reject", h.Bookings.Reject)
	driver.POST("/bookings/:id/pickup", h.Bookings.Pickup)
	driver.POST("/bookings/:id/complete", h.Bookings.Complete)
	driver.POST("/bookings/:id/no-show", h.Bookings.NoShow)
	driver.POST("/bookings/:id/rate-passenger", h.Bookings.RatePassenger)

	shared := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RolePassenger, model.RoleDriver, model.RoleAdmin),
		rateLimit,
	)
	shared.GET("/bookings/:id", h.Bookings.Get)
	shared.POST("/bookings/:id/cancel", h.Bookings.Cancel)
}
