package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/oauth/state"
	"github.com/dropDatabas3/socialauth/internal/social"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("%w: expired", oauth.ErrInvalidState), "INVALID_STATE", 400},
		{fmt.Errorf("registry: %w", oauth.ErrProviderNotFound), "PROVIDER_NOT_FOUND", 404},
		{oauth.TokenError("google", oauth.OpExchange, 400, "invalid_grant", nil), "PROVIDER_ERROR", 502},
		{oauth.ProfileError("google", 500, nil), "PROVIDER_ERROR", 502},
		{fmt.Errorf("%w: access_denied", social.ErrAccessDenied), "ACCESS_DENIED", 401},
		{social.ErrMissingCode, "BAD_REQUEST", 400},
		{stderrors.New("boom"), "INTERNAL_SERVER_ERROR", 500},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{fmt.Errorf("%w: dial tcp: refused", state.ErrStoreUnavailable), "SERVICE_UNAVAILABLE", 503},
	}
	for _, tc := range cases {
		ae := FromError(tc.err)
		require.Equal(t, tc.code, ae.Code, tc.err.Error())
		require.Equal(t, tc.status, ae.HTTPStatus)
	}
}

func TestWithDetailDoesNotMutateShared(t *testing.T) {
	e := ErrBadRequest.WithDetail("x")
	require.Equal(t, "x", e.Detail)
	require.Empty(t, ErrBadRequest.Detail)
}

func TestWriteError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, oauth.TokenError("google", oauth.OpExchange, 401, "invalid_client", stderrors.New("secret detail")))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NotContains(t, rec.Body.String(), "secret detail")
	require.NotContains(t, rec.Body.String(), "invalid_client")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "PROVIDER_ERROR", body["code"])
	require.Equal(t, "Authentication failed.", body["message"])
}
