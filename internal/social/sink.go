package social

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// IdentitySink receives the normalized profile of a completed login and
// returns the internal user id it maps to. Persistence, account linking and
// session issuance live behind it. The profile carries the provider tokens;
// the sink decides whether to keep them.
type IdentitySink interface {
	Link(ctx context.Context, p *oauth.Profile) (userID string, err error)
}

// SinkFunc adapts a function to IdentitySink.
type SinkFunc func(ctx context.Context, p *oauth.Profile) (string, error)

func (f SinkFunc) Link(ctx context.Context, p *oauth.Profile) (string, error) { return f(ctx, p) }

// LogSink keeps nothing: it logs the identity and uses "provider:id" as the
// user id. Used when no persistence layer is wired.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Link(ctx context.Context, p *oauth.Profile) (string, error) {
	logger.FromOr(ctx, s.Log).Info("identity linked",
		logger.Component("social.sink"),
		logger.Provider(p.Provider),
		logger.ProviderUserID(p.ProviderID),
		zap.Bool("email_verified", p.EmailVerified),
	)
	return p.ExternalID(), nil
}
