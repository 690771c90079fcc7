package httpserver

import (
	"github.com/avatarctic/email-verification-service/internal/core/domain/auth"
)

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	verification := api.Group("/verification")

	verification.GET("/verify", s.verifyEmail)
	verification.POST("/verify", s.verifyEmail)

	internal := verification.Group("")
	internal.Use(s.middleware.ServiceAuth.RequireScope(auth.ScopeIssueTokens))
	internal.POST("/tokens", s.issueToken)
	internal.POST("/send", s.sendVerificationEmail)
}
