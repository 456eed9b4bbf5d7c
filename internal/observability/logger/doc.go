// Package logger wraps a process-wide zap logger with request scoping.
//
// Init is called once from main. Request handlers attach a scoped logger to
// the context (request id, provider) and everything below reads it back with
// From(ctx), falling back to the singleton when nothing was attached.
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Complete"))
//	log.Info("profile fetched", logger.Provider(p.Provider), logger.ProviderUserID(p.ProviderID))
//
// There are deliberately no field helpers for access tokens, refresh tokens,
// authorization codes or state values. Those never go to logs.
package logger
