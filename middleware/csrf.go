package middleware

import (
	"net/http"

	gsnauth "github.com/7L7K/gsnauth"
)

// CSRF runs the engine's double-submit gate before the wrapped handler.
// Mutating requests that fail the check get 403; everything else passes
// through untouched.
func CSRF(engine *gsnauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if err := engine.CheckCSRF(r.Context(), r); err != nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
