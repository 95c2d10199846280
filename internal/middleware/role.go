package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin returns a middleware that rejects requests whose JWT
// role claim is not "admin" with a 403. The permission guard re-checks
// the role against the database on privileged repository operations;
// this middleware only short-circuits obvious cases before any work is
// done. It assumes JWTAuth has stored the role in the context.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || role != "admin" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin privileges required"})
			}
			return next(c)
		}
	}
}
