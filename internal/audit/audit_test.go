package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

func TestLog_WritesEventWithID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	Log(context.Background(), zap.New(core), ProfileFetched,
		logger.Provider("google"), logger.ProviderUserID("999"))

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	require.Equal(t, true, fields["audit"])
	require.Equal(t, ProfileFetched, fields["event"])
	require.Equal(t, "google", fields["provider"])
	require.Equal(t, "999", fields["provider_user_id"])

	_, err := uuid.Parse(fields["event_id"].(string))
	require.NoError(t, err)
}

func TestLog_PrefersContextLogger(t *testing.T) {
	injected, injectedLogs := observer.New(zapcore.InfoLevel)
	scoped, scopedLogs := observer.New(zapcore.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(scoped))

	Log(ctx, zap.New(injected), TokenRevoked)

	require.Zero(t, injectedLogs.Len())
	require.Equal(t, 1, scopedLogs.Len())
}
