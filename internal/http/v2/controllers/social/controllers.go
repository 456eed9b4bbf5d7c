// Package social holds the HTTP controllers of the social login flow.
package social

import (
	"context"
	"net/url"

	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/oauth/state"
	"github.com/dropDatabas3/socialauth/internal/social"
)

// Flow is what the controllers need from social.Authenticator.
type Flow interface {
	Providers() []string
	Capabilities(providerID string) (oauth.Capabilities, error)
	Begin(ctx context.Context, providerID string, cont state.Continuation, extra url.Values) (string, error)
	Complete(ctx context.Context, providerID string, cb social.Callback) (*social.Result, error)
}

// Controllers groups the social controllers.
type Controllers struct {
	Providers *ProvidersController
	Start     *StartController
	Callback  *CallbackController
}

// NewControllers builds every controller on flow.
func NewControllers(flow Flow) *Controllers {
	return &Controllers{
		Providers: NewProvidersController(flow),
		Start:     NewStartController(flow),
		Callback:  NewCallbackController(flow),
	}
}
