package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/application/services"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
)

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Client-facing messages. Internal error text never reaches the response.
const (
	msgTokenRequired      = "Verification token required"
	msgTokenInvalid       = "Invalid or expired verification token"
	msgTokenExpired       = "Verification token expired. Please request a new one."
	msgVerifyFailed       = "Failed to verify token"
	msgIssueFieldsMissing = "userId and email required"
	msgIssueFailed        = "Failed to generate verification token"
	msgSendFieldsMissing  = "userId, email, and username required"
	msgSendFailed         = "Failed to send verification email"
	msgInvalidBody        = "Invalid request body"
)

// redeemError maps a Redeem error to its HTTP status and message.
func redeemError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, verification.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, msgTokenRequired)
	case errors.Is(err, verification.ErrTokenNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msgTokenInvalid)
	case errors.Is(err, verification.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusGone, msgTokenExpired)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, msgVerifyFailed).SetInternal(err)
	}
}

func issueError(err error) *echo.HTTPError {
	if errors.Is(err, verification.ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, msgIssueFieldsMissing)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msgIssueFailed).SetInternal(err)
}

func sendError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, verification.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, msgSendFieldsMissing)
	case errors.Is(err, services.ErrEmailDelivery):
		return echo.NewHTTPError(http.StatusInternalServerError, msgSendFailed).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, msgIssueFailed).SetInternal(err)
	}
}

// httpErrorHandler renders every error as {"error": msg}. Non-HTTP errors
// become a generic 500.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
		if he.Internal != nil {
			err = he.Internal
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"method":     c.Request().Method,
			"path":       c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).WithError(err).Error("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to write error response")
	}
}
