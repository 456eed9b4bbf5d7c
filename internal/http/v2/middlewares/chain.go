package middlewares

import "net/http"

// Middleware decorates an http.Handler. It has the shape chi expects, so
// the same values work with Chain and chi.Router.Use.
type Middleware func(http.Handler) http.Handler

// Chain applies mws left to right: Chain(h, A, B) runs A -> B -> h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
