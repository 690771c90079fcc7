package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const bearerPrefix = "Bearer "

// BearerToken returns the service token from the Authorization header, or a
// 401 HTTPError when it is absent or malformed.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "service token required")
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "service token required")
	}
	return token, nil
}
