// Package router assembles the v2 HTTP surface on chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	healthctrl "github.com/dropDatabas3/socialauth/internal/http/v2/controllers/health"
	socialctrl "github.com/dropDatabas3/socialauth/internal/http/v2/controllers/social"
	httperrors "github.com/dropDatabas3/socialauth/internal/http/v2/errors"
	mw "github.com/dropDatabas3/socialauth/internal/http/v2/middlewares"
)

// Deps are the router dependencies. Metrics and RateLimit are optional.
type Deps struct {
	Log    *zap.Logger
	Social *socialctrl.Controllers
	Health *healthctrl.HealthController

	Metrics   http.Handler
	RateLimit mw.Middleware
}

// New builds the handler.
//
//	GET /readyz
//	GET /metrics
//	GET /v2/auth/social/providers
//	GET /v2/auth/social/{provider}/start
//	GET /v2/auth/social/{provider}/callback
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRecover(), mw.WithRequestID())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// infra: no request log, these are polled
	if d.Health != nil {
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v2/auth/social", func(r chi.Router) {
		r.Use(mw.WithLogging(d.Log), mw.WithNoStore())
		r.Get("/providers", d.Social.Providers.List)

		r.Group(func(r chi.Router) {
			if d.RateLimit != nil {
				r.Use(d.RateLimit)
			}
			r.Get("/{provider}/start", d.Social.Start.Start)
			r.Get("/{provider}/callback", d.Social.Callback.Callback)
		})
	})
	return r
}
