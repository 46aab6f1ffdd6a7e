package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole restricts a route to principals holding one of the given
// roles. The check is pure set membership; roles carry no ordering. Must run
// after Auth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := Principal(c)
			if user == nil || !allowed[user.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"detail": "Forbidden"})
			}
			return next(c)
		}
	}
}
