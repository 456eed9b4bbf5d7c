package social

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/socialauth/internal/http/v2/dto/social"
	httperrors "github.com/dropDatabas3/socialauth/internal/http/v2/errors"
	"github.com/dropDatabas3/socialauth/internal/http/v2/helpers"
	"github.com/dropDatabas3/socialauth/internal/oauth/state"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/social"
)

// passthrough are the query parameters forwarded to the provider.
var passthrough = []string{"login_hint"}

// StartController begins a login.
type StartController struct {
	flow Flow
}

func NewStartController(flow Flow) *StartController {
	return &StartController{flow: flow}
}

// Start handles GET /v2/auth/social/{provider}/start
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"), logger.Provider(provider))

	q := r.URL.Query()
	redirectTo := strings.TrimSpace(q.Get("redirect_to"))
	if !helpers.SafeRedirect(redirectTo) {
		log.Warn("refusing redirect_to")
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("redirect_to must be a relative path"))
		return
	}

	var cont state.Continuation
	if redirectTo != "" {
		cont = state.Continuation{social.ContinuationRedirect: redirectTo}
	}
	extra := url.Values{}
	for _, k := range passthrough {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			extra.Set(k, v)
		}
	}

	authURL, err := c.flow.Begin(ctx, provider, cont, extra)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if wantsJSON(r) {
		helpers.WriteJSON(w, http.StatusOK, dto.StartResponse{AuthorizationURL: authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" ||
		strings.Contains(strings.ToLower(r.Header.Get("Accept")), "application/json")
}
