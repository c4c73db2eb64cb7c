package site

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 5 * time.Second

// Health check states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	checkOK         = "ok"
	checkDisabled   = "disabled"
)

// HealthResponse represents the JSON response from the /healthz endpoint.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealthz handles HTTP GET requests to /healthz.
// Returns 200 OK while WordPress is reachable, 503 Service Unavailable otherwise.
// A failing cache reports "degraded" with 200 OK.
//
// Response format:
//   - Success: {"status": "healthy", "checks": {"wordpress": "ok", "redis": "ok"}}
//   - Failure: {"status": "unhealthy", "checks": {"wordpress": "connection refused", "redis": "ok"}}
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	wordpress, redis := checkDisabled, checkDisabled

	var g errgroup.Group
	if s.wordpress != nil {
		g.Go(func() error {
			wordpress = checkResult(s.wordpress.Ping(ctx))
			return nil
		})
	}
	if s.cache != nil {
		g.Go(func() error {
			redis = checkResult(s.cache.Ping(ctx))
			return nil
		})
	}
	g.Wait()

	response := HealthResponse{
		Status: StatusHealthy,
		Checks: map[string]string{"wordpress": wordpress, "redis": redis},
	}
	statusCode := http.StatusOK

	switch {
	case wordpress != checkOK && wordpress != checkDisabled:
		response.Status = StatusUnhealthy
		statusCode = http.StatusServiceUnavailable
		s.logger.Warn("Health check failed", zap.String("wordpress", wordpress), zap.String("redis", redis))
	case redis != checkOK && redis != checkDisabled:
		response.Status = StatusDegraded
		s.logger.Warn("Health check degraded", zap.String("redis", redis))
	}

	writeJSON(w, statusCode, response)
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return checkOK
}
