package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP

func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

func UserAgent(v string) zap.Field {
	return zap.String("user_agent", v)
}

func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

func URLHost(v string) zap.Field {
	return zap.String("url_host", v)
}

// OAuth

// Provider is the configured provider id ("google", "github"...).
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// ProviderUserID is the provider-scoped user id (Google "sub", GitHub numeric id).
func ProviderUserID(v string) zap.Field {
	return zap.String("provider_user_id", v)
}

// Phase is the authentication attempt phase.
func Phase(v string) zap.Field {
	return zap.String("phase", v)
}

// OAuthError is the OAuth "error" code returned by a provider, e.g. invalid_grant.
func OAuthError(v string) zap.Field {
	return zap.String("oauth_error", v)
}

// Attempt is the retry attempt number, starting at 1.
func Attempt(v int) zap.Field {
	return zap.Int("attempt", v)
}

// UserID is the internal user id returned by the identity sink.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Email logs a masked address. Keep it at debug level anyway.
func Email(v string) zap.Field {
	return zap.String("email", MaskEmail(v))
}

// System

func Component(v string) zap.Field {
	return zap.String("component", v)
}

func Op(v string) zap.Field {
	return zap.String("op", v)
}

func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

func Event(v string) zap.Field {
	return zap.String("event", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

// Generic

func Count(v int) zap.Field {
	return zap.Int("count", v)
}

func ID(v string) zap.Field {
	return zap.String("id", v)
}

func String(key, v string) zap.Field {
	return zap.String(key, v)
}

func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

