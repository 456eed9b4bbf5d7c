package middlewares

import "net/http"

// WithNoStore sets Cache-Control: no-store. Login redirects and callback
// results must never be cached by browsers or proxies.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}
