// Package router maps HTTP routes onto handlers and attaches the
// middleware chain. Routes are grouped by who may call them: public
// browsing, passenger, driver and the payment collaborator.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/carpool-marketplace/internal/config"
	"github.com/iliyamo/carpool-marketplace/internal/handler"
	"github.com/iliyamo/carpool-marketplace/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Trips    *handler.TripHandler
	Bookings *handler.BookingHandler
	Search   *handler.SearchHandler
	Payments *handler.PaymentHandler
	Health   *handler.HealthHandler
}

// Register mounts all routes on the echo instance. rdb may be nil, which
// disables the response cache and rate limiter.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", h.Health.Check)

	rateLimit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	registerPublic(e, h, rateLimit, cache)
	registerPassenger(e, h, jwtSecret, rateLimit)
	registerDriver(e, h, jwtSecret, rateLimit)
	registerPayments(e, h, jwtSecret)
}

// registerPublic mounts unauthenticated browse endpoints. Search and trip
// reads are cached; stale availability is acceptable because seat counts
// are re-validated under the row lock when a booking is attempted.
func registerPublic(e *echo.Echo, h Handlers, rateLimit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", rateLimit)
	g.GET("/trips/search", h.Search.Search, cache)
	g.GET("/trips/:id", h.Trips.Get, cache)
	g.GET("/trips/:id/waypoints", h.Trips.ListWaypoints, cache)
}
