package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const healthProbeTimeout = 2 * time.Second

type healthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck probes every dependency in parallel. Any failing probe turns
// the response into 503 "degraded" so load balancers stop routing redeems
// to an instance that cannot record them.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		deps = make(map[string]string, len(s.healthCheckers))
		g    errgroup.Group
	)
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		hc := hc
		g.Go(func() error {
			state := "healthy"
			if err := hc.Check(ctx); err != nil {
				state = "unhealthy"
				s.logger.WithField("dependency", hc.Name()).WithError(err).Warn("health probe failed")
			}
			mu.Lock()
			deps[hc.Name()] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := healthResponse{
		Status:       "healthy",
		Service:      "email-verification-service",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: deps,
	}
	for _, state := range deps {
		if state != "healthy" {
			resp.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
