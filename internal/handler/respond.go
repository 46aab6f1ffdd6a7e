// Package handler contains the HTTP endpoints. Handlers bind and validate
// request bodies, call into services or repositories and translate errors
// into status codes; business rules live below this layer.
package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/apperr"
)

// fail renders a category error as {"detail": message} with the status code
// of its category.
func fail(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), echo.Map{"detail": apperr.Message(err)})
}

// message renders a plain {"message": ...} payload.
func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}
