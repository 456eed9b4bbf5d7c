package social

import (
	"net/http"
	"net/url"

	dto "github.com/dropDatabas3/socialauth/internal/http/v2/dto/social"
	"github.com/dropDatabas3/socialauth/internal/http/v2/helpers"
)

// ProvidersController lists enabled providers.
type ProvidersController struct {
	flow Flow
}

func NewProvidersController(flow Flow) *ProvidersController {
	return &ProvidersController{flow: flow}
}

// List handles GET /v2/auth/social/providers
func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	ids := c.flow.Providers()
	resp := dto.ProvidersResponse{Providers: make([]dto.ProviderInfo, 0, len(ids))}
	for _, id := range ids {
		caps, err := c.flow.Capabilities(id)
		if err != nil {
			continue
		}
		resp.Providers = append(resp.Providers, dto.ProviderInfo{
			ID:       id,
			StartURL: "/v2/auth/social/" + url.PathEscape(id) + "/start",
			Refresh:  caps.Refresh,
			Revoke:   caps.Revoke,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
