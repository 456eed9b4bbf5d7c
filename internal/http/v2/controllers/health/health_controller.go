// Package health holds the readiness controller.
package health

import (
	"context"
	"net/http"
	"time"

	dto "github.com/dropDatabas3/socialauth/internal/http/v2/dto/health"
	"github.com/dropDatabas3/socialauth/internal/http/v2/helpers"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Pinger is a dependency readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController serves /readyz.
type HealthController struct {
	version string
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthController checks every entry of checks on each request.
func NewHealthController(version string, checks map[string]Pinger) *HealthController {
	return &HealthController{version: version, checks: checks, timeout: 2 * time.Second}
}

// Readyz handles GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	resp := dto.HealthResponse{Status: "ready", Version: c.version, Components: map[string]string{}}
	for name, p := range c.checks {
		if err := p.Ping(ctx); err != nil {
			log.Warn("readiness check failed", logger.Component(name), logger.Err(err))
			resp.Components[name] = "down"
			resp.Status = "unavailable"
			continue
		}
		resp.Components[name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	if c.version != "" {
		w.Header().Set("X-Service-Version", c.version)
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, resp)
}
