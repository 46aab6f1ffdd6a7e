// Package middleware provides the request processing shared by protected
// routes: bearer authentication, role checks and rate limiting.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/auth"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/repository"
)

// principalKey is the context key under which the authenticated user is
// stored for handlers and downstream middleware.
const principalKey = "user"

// PrincipalLoader resolves a user id from a decoded token to a full user row.
type PrincipalLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Auth returns a middleware that validates the Bearer access token, loads
// the principal and stores it in the context. Rejection ladder: missing or
// invalid token 401, user gone 404, user deactivated 403.
func Auth(tokens *auth.TokenManager, users PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Not authenticated"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := tokens.DecodeAccessToken(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Invalid or expired token."})
			}

			user, err := users.GetByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"detail": "User not found."})
			}
			if err != nil {
				c.Logger().Errorf("auth: load principal %d: %v", claims.UserID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
			}
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"detail": "User account is not activated."})
			}

			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// Principal returns the authenticated user stored by Auth, or nil when the
// route was not wrapped by it.
func Principal(c echo.Context) *model.User {
	if u, ok := c.Get(principalKey).(*model.User); ok {
		return u
	}
	return nil
}
