package oauth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// TokenResponse is the parsed reply of a provider token endpoint.
// Its String, GoString and zap encodings never include token values.
type TokenResponse struct {
	AccessToken string
	// RefreshToken is empty when the provider did not grant offline access.
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds, nil when the
	// provider did not say.
	ExpiresIn *int64
	TokenType string
	Scope     string
	IDToken   string
}

// HasRefreshToken reports whether a refresh token was issued.
func (t TokenResponse) HasRefreshToken() bool { return t.RefreshToken != "" }

func (t TokenResponse) String() string {
	exp := "unknown"
	if t.ExpiresIn != nil {
		exp = strconv.FormatInt(*t.ExpiresIn, 10) + "s"
	}
	return fmt.Sprintf("TokenResponse{type=%s scope=%q expires_in=%s refresh=%t id_token=%t}",
		t.TokenType, t.Scope, exp, t.HasRefreshToken(), t.IDToken != "")
}

func (t TokenResponse) GoString() string { return t.String() }

func (t TokenResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("token_type", t.TokenType)
	enc.AddString("scope", t.Scope)
	if t.ExpiresIn != nil {
		enc.AddInt64("expires_in", *t.ExpiresIn)
	}
	enc.AddBool("refresh_token", t.HasRefreshToken())
	return nil
}

// Profile is the provider-agnostic user record handed to the identity sink.
// (Provider, ProviderID) is the join key; Email is informational.
type Profile struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	FirstName     string
	LastName      string
	AvatarURL     string
	Locale        string

	AccessToken  string
	RefreshToken string
	// TokenExpiresAt is nil when the provider gave no lifetime.
	TokenExpiresAt *time.Time

	// Raw is the provider payload, kept for audit and debugging.
	Raw map[string]any
}

// ExternalID is "provider:providerID".
func (p Profile) ExternalID() string { return p.Provider + ":" + p.ProviderID }

func (p Profile) String() string {
	return fmt.Sprintf("Profile{provider=%s id=%s email=%s verified=%t}",
		p.Provider, p.ProviderID, p.Email, p.EmailVerified)
}

func (p Profile) GoString() string { return p.String() }

func (p Profile) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("provider", p.Provider)
	enc.AddString("provider_user_id", p.ProviderID)
	enc.AddBool("email_verified", p.EmailVerified)
	return nil
}

// ExpiresAt returns now+expiresIn, or nil when expiresIn is nil or does not
// fit a time.Duration.
func ExpiresAt(now time.Time, expiresIn *int64) *time.Time {
	if expiresIn == nil || *expiresIn <= 0 || *expiresIn > maxExpiresIn {
		return nil
	}
	at := now.Add(time.Duration(*expiresIn) * time.Second)
	return &at
}

type tokenWire struct {
	AccessToken      string          `json:"access_token"`
	RefreshToken     string          `json:"refresh_token"`
	ExpiresIn        json.RawMessage `json:"expires_in"`
	TokenType        string          `json:"token_type"`
	Scope            string          `json:"scope"`
	IDToken          string          `json:"id_token"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// errorBody is the RFC 6749 error shape.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

var errNoAccessToken = errors.New("response has no access_token")

// oauthErrorCode extracts the OAuth "error" field from body, if any.
func oauthErrorCode(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		return ""
	}
	return eb.Error
}

// decodeTokenResponse parses a token endpoint body. It returns the OAuth
// error code separately so callers can fail on 200 replies that carry one.
func decodeTokenResponse(body []byte) (*TokenResponse, string, error) {
	var w tokenWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, "", fmt.Errorf("decode token response: %w", err)
	}
	if w.Error != "" {
		return nil, w.Error, errors.New("provider returned an error")
	}
	if w.AccessToken == "" {
		return nil, "", errNoAccessToken
	}
	exp, err := parseExpiresIn(w.ExpiresIn)
	if err != nil {
		return nil, "", err
	}
	return &TokenResponse{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		ExpiresIn:    exp,
		TokenType:    w.TokenType,
		Scope:        w.Scope,
		IDToken:      w.IDToken,
	}, "", nil
}

// maxExpiresIn is the largest lifetime, in seconds, a time.Duration can hold.
const maxExpiresIn = math.MaxInt64 / int64(time.Second)

// parseExpiresIn accepts a JSON number or numeric string. Absent, null,
// non-positive and out-of-range values mean unknown.
func parseExpiresIn(raw json.RawMessage) (*int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	s := strings.Trim(string(raw), `"`)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil, fmt.Errorf("decode token response: bad expires_in")
		}
		if math.IsNaN(f) || f <= 0 || f > float64(maxExpiresIn) {
			return nil, nil
		}
		n = int64(f)
	}
	if n <= 0 || n > maxExpiresIn {
		return nil, nil
	}
	return &n, nil
}
