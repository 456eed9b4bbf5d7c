package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/oauth/state"
	"github.com/dropDatabas3/socialauth/internal/social"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError writes err as the JSON envelope. Errors that are not an
// *AppError are mapped with FromError. The cause is never serialized.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// FromError maps domain errors to their AppError. Anything unknown is an
// internal error that keeps err as its cause.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, oauth.ErrInvalidState):
		return ErrInvalidState.WithCause(err)
	case stderrors.Is(err, oauth.ErrProviderNotFound):
		return ErrProviderNotFound.WithCause(err)
	case stderrors.Is(err, social.ErrAccessDenied):
		return ErrAccessDenied.WithCause(err)
	case stderrors.Is(err, social.ErrMissingCode):
		return ErrBadRequest.WithDetail("code required").WithCause(err)
	case stderrors.Is(err, oauth.ErrProviderToken), stderrors.Is(err, oauth.ErrProviderProfile):
		return ErrProvider.WithCause(err)
	case stderrors.Is(err, state.ErrStoreUnavailable):
		return ErrServiceUnavailable.WithCause(err)
	case stderrors.Is(err, oauth.ErrUnsupportedOperation):
		return ErrBadRequest.WithDetail("operation not supported by provider").WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
