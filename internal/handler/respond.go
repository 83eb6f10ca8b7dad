// Package handler exposes the HTTP surface over echo. Handlers bind and
// validate input, call the service layer and translate its error taxonomy
// into status codes; no business rules live here.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/carpool-marketplace/internal/middleware"
	"github.com/iliyamo/carpool-marketplace/internal/model"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
)

// fail translates a service error into the HTTP response. Unknown errors
// become 500 with the detail kept out of the body.
func fail(c echo.Context, err error) error {
	var verr model.ValidationError
	var seatErr *repository.SeatConflictError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	case errors.As(err, &seatErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           seatErr.Error(),
			"seats_remaining": seatErr.Remaining,
		})
	case errors.Is(err, repository.ErrTripNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		logrus.WithError(err).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// principal pulls the authenticated caller out of the context. Routes
// behind JWTAuth always have one; its absence is a wiring bug.
func principal(c echo.Context) (model.Principal, error) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return model.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	return p, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
