package middleware

import (
	"net/http"
	"strings"
)

// LowerPath makes route matching case-insensitive (/Login serves /login).
// The query string is left untouched.
func LowerPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lower := strings.ToLower(r.URL.Path); lower != r.URL.Path {
			r.URL.Path = lower
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}
