package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/httpserver/helpers"
)

// issueToken handles POST /api/v1/verification/tokens.
func (s *Server) issueToken(c echo.Context) error {
	var req verification.IssueTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody)
	}
	req.Origin = c.Request().Header.Get(echo.HeaderOrigin)

	res, err := s.verificationSvc.Issue(c.Request().Context(), &req)
	if err != nil {
		return issueError(err)
	}
	s.logCaller(c, "verification token issued", req.UserID)
	return c.JSON(http.StatusCreated, res)
}

// sendVerificationEmail handles POST /api/v1/verification/send.
func (s *Server) sendVerificationEmail(c echo.Context) error {
	var req verification.SendVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody)
	}
	req.Origin = c.Request().Header.Get(echo.HeaderOrigin)

	messageID, err := s.verificationSvc.SendVerification(c.Request().Context(), &req)
	if err != nil {
		return sendError(err)
	}
	s.logCaller(c, "verification email sent", req.UserID)
	return c.JSON(http.StatusOK, map[string]string{
		"message":   "Verification email sent",
		"messageId": messageID,
	})
}

// verifyEmail handles GET and POST /api/v1/verification/verify. The token
// comes from the query string; POST may send it as {"token": ...} instead.
func (s *Server) verifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" && c.Request().Method == http.MethodPost {
		var req verification.RedeemRequest
		if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, msgTokenRequired)
		}
		token = req.Token
	}

	res, err := s.verificationSvc.Redeem(c.Request().Context(), strings.TrimSpace(token))
	if err != nil {
		return redeemError(err)
	}

	msg := "Email verified successfully"
	if res.Outcome == verification.OutcomeAlreadyVerified {
		msg = "Email already verified"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": msg,
		"userId":  res.UserID,
	})
}

// logCaller records which internal service triggered an issue.
func (s *Server) logCaller(c echo.Context, msg, userID string) {
	caller, ok := helpers.GetServiceSubject(c)
	if !ok {
		caller = "anonymous"
	}
	s.logger.WithFields(logrus.Fields{"caller": caller, "user_id": userID}).Debug(msg)
}
