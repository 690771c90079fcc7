package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// MiddlewareCollection holds the middleware shared by all routes of the
// verification API.
type MiddlewareCollection struct {
	ServiceAuth *ServiceAuthMiddleware
	Logging     *LoggingMiddleware
	Metrics     *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	serviceAuth ports.ServiceAuthenticator,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		ServiceAuth: NewServiceAuthMiddleware(serviceAuth, logger),
		Logging:     NewLoggingMiddleware(logger),
		Metrics:     NewMetricsMiddleware(requestsTotal, requestDuration, "/metrics", "/health"),
	}
}
