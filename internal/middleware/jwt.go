// Package middleware holds the echo middleware chain: JWT authentication,
// role gating, response caching and rate limiting.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// Claims is the token payload issued by the identity collaborator. This
// service only verifies and reads it, it never issues tokens.
type Claims struct {
	UserID uint64     `json:"user_id"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token and stores the caller's identity in
// the request context under "user_id" and "role". Requests without a valid
// token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			claims := new(Claims)
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, prefix), claims,
				func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
					}
					return key, nil
				})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// CurrentPrincipal reads the identity stored by JWTAuth. The boolean is
// false when the middleware did not run on this route.
func CurrentPrincipal(c echo.Context) (model.Principal, bool) {
	id, ok := c.Get("user_id").(uint64)
	if !ok {
		return model.Principal{}, false
	}
	role, ok := c.Get("role").(model.Role)
	if !ok {
		return model.Principal{}, false
	}
	return model.Principal{UserID: id, Role: role}, true
}
