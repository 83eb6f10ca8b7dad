package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service liveness and dependency reachability.
type HealthHandler struct {
	db  *sql.DB
	rdb *redis.Client
}

// NewHealthHandler returns a HealthHandler. rdb may be nil when Redis is
// disabled.
func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Check handles GET /health. The database is required; Redis is reported
// but never fails the check since the service degrades without it.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	overall := "ok"
	status := http.StatusOK
	dbState := "up"
	if err := h.db.PingContext(ctx); err != nil {
		dbState = "down"
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	redisState := "disabled"
	if h.rdb != nil {
		redisState = "up"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			redisState = "down"
		}
	}

	return c.JSON(status, echo.Map{
		"status": overall,
		"db":     dbState,
		"redis":  redisState,
	})
}
