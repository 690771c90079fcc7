package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/httpserver/helpers"
)

// ServiceAuthMiddleware restricts routes to internal callers holding a
// service token.
type ServiceAuthMiddleware struct {
	authenticator ports.ServiceAuthenticator
	logger        *logrus.Logger
}

func NewServiceAuthMiddleware(authenticator ports.ServiceAuthenticator, logger *logrus.Logger) *ServiceAuthMiddleware {
	return &ServiceAuthMiddleware{authenticator: authenticator, logger: logger}
}

// RequireScope rejects requests without a valid bearer token carrying scope.
// It lets everything through when no authenticator is configured.
func (m *ServiceAuthMiddleware) RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m.authenticator == nil {
			return next
		}
		return func(c echo.Context) error {
			tokenString, err := helpers.BearerToken(c)
			if err != nil {
				return err
			}

			claims, err := m.authenticator.ValidateToken(c.Request().Context(), tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("service token validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid service token")
			}
			if !claims.HasScope(scope) {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"subject": claims.Subject, "scope": scope}).Warn("service token missing scope")
				}
				return echo.NewHTTPError(http.StatusForbidden, "insufficient scope")
			}

			helpers.SetServiceSubject(c, claims.Subject)
			return next(c)
		}
	}
}
