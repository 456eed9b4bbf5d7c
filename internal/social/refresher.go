package social

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Refresher serializes refreshes per provider user. Most providers rotate
// the refresh token on use, so two concurrent refreshes with the same token
// would leave one caller with an invalidated credential. Callers that arrive
// while a refresh is in flight share its result.
type Refresher struct {
	registry *oauth.Registry
	group    singleflight.Group
	log      *zap.Logger
}

// NewRefresher builds a Refresher over reg.
func NewRefresher(reg *oauth.Registry, log *zap.Logger) *Refresher {
	return &Refresher{registry: reg, log: logger.OrNop(log)}
}

// Refresh trades refreshToken for new tokens at providerID. When the
// provider does not rotate, the returned set keeps refreshToken so the
// caller can always persist the result as-is.
//
// The provider call runs detached from ctx so that one impatient caller
// does not fail the others sharing the flight; ctx only bounds this
// caller's wait.
func (r *Refresher) Refresh(ctx context.Context, providerID, providerUserID, refreshToken string) (*oauth.TokenResponse, error) {
	log := logger.FromOr(ctx, r.log).With(
		logger.Component("social.refresher"),
		logger.Provider(providerID),
		logger.ProviderUserID(providerUserID),
	)

	strat, err := r.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	if !strat.Capabilities().Refresh {
		metrics.Refreshes.WithLabelValues(providerID, "unsupported").Inc()
		return nil, oauth.Unsupported(providerID, oauth.OpRefresh)
	}
	if providerUserID == "" || refreshToken == "" {
		return nil, oauth.TokenError(providerID, oauth.OpRefresh, 0, "", errors.New("missing user id or refresh token"))
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(providerID+"\x00"+providerUserID, func() (any, error) {
		return strat.RefreshToken(detached, refreshToken)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.Refreshes.WithLabelValues(providerID, "error").Inc()
			log.Warn("refresh failed", logger.Err(res.Err), logger.Status(oauth.StatusOf(res.Err)))
			return nil, res.Err
		}
		outcome := "ok"
		if res.Shared {
			outcome = "shared"
		}
		metrics.Refreshes.WithLabelValues(providerID, outcome).Inc()

		// shared results are read by several callers: hand out copies
		tr := *res.Val.(*oauth.TokenResponse)
		if tr.RefreshToken == "" {
			tr.RefreshToken = refreshToken
		}
		return &tr, nil
	}
}
