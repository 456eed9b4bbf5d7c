package social

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/socialauth/internal/http/v2/dto/social"
	httperrors "github.com/dropDatabas3/socialauth/internal/http/v2/errors"
	"github.com/dropDatabas3/socialauth/internal/http/v2/helpers"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/social"
)

// CallbackController finishes a login.
type CallbackController struct {
	flow Flow
}

func NewCallbackController(flow Flow) *CallbackController {
	return &CallbackController{flow: flow}
}

// Callback handles GET /v2/auth/social/{provider}/callback
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"), logger.Provider(provider))

	q := r.URL.Query()
	res, err := c.flow.Complete(ctx, provider, social.Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		appErr := httperrors.FromError(err)
		if appErr.HTTPStatus >= 500 {
			log.Error("callback failed", logger.Err(err))
		}
		httperrors.WriteError(w, appErr)
		return
	}

	p := res.Profile
	helpers.WriteJSON(w, http.StatusOK, dto.CallbackResponse{
		Provider:       p.Provider,
		ProviderUserID: p.ProviderID,
		Email:          p.Email,
		EmailVerified:  p.EmailVerified,
		DisplayName:    p.DisplayName,
		UserID:         res.UserID,
		RedirectTo:     res.RedirectTo(),
	})
}
