package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// httpMetrics are the per-request series recorded by the metrics middleware.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "The total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "The HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// metricsEndpoint serves everything registered on the server's registry,
// including the verification counters when they share it.
func (s *Server) metricsEndpoint(c echo.Context) error {
	s.logger.Debug("Serving Prometheus metrics")
	promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: s.logger,
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}
