package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
	customMiddleware "github.com/avatarctic/email-verification-service/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
}

type ServerDeps struct {
	VerificationService ports.VerificationService
	// ServiceAuth guards the issuance routes; nil leaves them open.
	ServiceAuth    ports.ServiceAuthenticator
	HealthCheckers []ports.HealthChecker
	// Registry receives the HTTP metrics and backs /metrics. Nil means a
	// private registry, so several servers can coexist in one process.
	Registry *prometheus.Registry
}

type Server struct {
	echo            *echo.Echo
	config          *ServerConfig
	logger          *logrus.Logger
	verificationSvc ports.VerificationService
	middleware      *customMiddleware.MiddlewareCollection
	healthCheckers  []ports.HealthChecker
	registry        *prometheus.Registry
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	if logger == nil {
		logger = discardLogger
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	httpMetrics := newHTTPMetrics(registry)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:            e,
		config:          serverConfig,
		logger:          logger,
		verificationSvc: deps.VerificationService,
		healthCheckers:  deps.HealthCheckers,
		registry:        registry,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.ServiceAuth,
			logger,
			httpMetrics.requestsTotal,
			httpMetrics.requestDuration,
		),
	}

	e.HTTPErrorHandler = server.httpErrorHandler
	server.setupMiddleware()
	server.setupRoutes()

	return server
}
