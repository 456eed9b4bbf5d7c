// Package audit emits security-relevant events as structured log entries.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Event names.
const (
	ProfileFetched = "oauth.profile_fetched"
	StateRejected  = "oauth.state_rejected"
	TokenRefreshed = "oauth.token_refreshed"
	TokenRevoked   = "oauth.token_revoked"
	LoginCompleted = "oauth.login_completed"
)

// Log writes event to l (or the context logger when one is attached) with a
// fresh event id. Callers pass identifiers only, never credentials.
func Log(ctx context.Context, l *zap.Logger, event string, fields ...zap.Field) {
	base := []zap.Field{
		zap.Bool("audit", true),
		logger.Event(event),
		zap.String("event_id", uuid.NewString()),
		zap.Time("ts", time.Now().UTC()),
	}
	logger.FromOr(ctx, l).Info("audit", append(base, fields...)...)
}
