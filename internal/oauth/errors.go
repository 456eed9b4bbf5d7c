package oauth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState means the state token is missing, expired or already used.
	// The login attempt must restart.
	ErrInvalidState = errors.New("oauth: invalid state")

	// ErrProviderToken is the kind of a failed code exchange or refresh.
	ErrProviderToken = errors.New("oauth: provider token error")

	// ErrProviderProfile is the kind of a failed userinfo fetch.
	ErrProviderProfile = errors.New("oauth: provider profile error")

	// ErrUnsupportedOperation is returned by strategies for operations listed
	// as false in Capabilities.
	ErrUnsupportedOperation = errors.New("oauth: unsupported operation")

	// ErrProviderNotFound is returned by Registry.Get for unknown ids.
	ErrProviderNotFound = errors.New("oauth: provider not found")
)

// ProviderError describes a failed call to a provider endpoint. Its message
// holds the provider, operation, HTTP status and OAuth error code only.
type ProviderError struct {
	Kind     error // ErrProviderToken or ErrProviderProfile
	Provider string
	Op       string
	Status   int    // 0 when no response was received
	Code     string // OAuth "error" field, e.g. invalid_grant
	// Ambiguous is set when a token request failed without a response: the
	// provider may have redeemed the code anyway.
	Ambiguous bool
	Err       error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "oauth: %s %s failed", e.Provider, e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// IsAmbiguous reports whether err is a token request whose outcome at the
// provider is unknown. Callers must not retry it with the same code.
func IsAmbiguous(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Ambiguous
}

// StatusOf returns the provider HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

// TokenError builds a ProviderError of kind ErrProviderToken.
func TokenError(provider, op string, status int, code string, err error) *ProviderError {
	return &ProviderError{Kind: ErrProviderToken, Provider: provider, Op: op, Status: status, Code: code, Err: err}
}

// ProfileError builds a ProviderError of kind ErrProviderProfile.
func ProfileError(provider string, status int, err error) *ProviderError {
	return &ProviderError{Kind: ErrProviderProfile, Provider: provider, Op: OpProfile, Status: status, Err: err}
}

// Unsupported wraps ErrUnsupportedOperation with the provider and operation.
func Unsupported(provider, op string) error {
	return fmt.Errorf("%w: %s does not support %s", ErrUnsupportedOperation, provider, op)
}
