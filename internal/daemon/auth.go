package daemon

import (
	"net/http"
	"strings"
)

// authMiddleware validates bearer tokens on API routes. An empty configured
// token disables authentication and passes every request through; otherwise
// requests must carry an "Authorization: Bearer <token>" header.
func authMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		value, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || value != token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
