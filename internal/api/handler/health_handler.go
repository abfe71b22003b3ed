package handler

import (
	"context"
	"net/http"
	"time"
)

// Check probes one dependency; nil means healthy.
type Check func(ctx context.Context) error

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Health handles GET /health
//
// @Summary  Liveness probe with dependency status
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Failure  503  {object}  map[string]any
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "disconnected"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "connected"
	}

	respondJSON(w, code, map[string]any{
		"status":       status,
		"service":      "notification-dispatch",
		"timestamp":    time.Now().UTC(),
		"dependencies": deps,
	})
}
