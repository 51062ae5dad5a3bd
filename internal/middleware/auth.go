package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireOperatorToken gates a handler behind a single bearer token,
// constant-time compared, protecting mutation endpoints an operator (not an
// end user) is expected to call. A nil/empty expected token disables the
// gate (debug-mode convenience, mirroring the teacher's --debug auth bypass).
func RequireOperatorToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"missing or invalid operator token"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
