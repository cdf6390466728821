package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/domain"
)

type contextKey string

// BearerAuth rejects requests whose bearer token does not exactly match token.
func BearerAuth(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			got := []byte(strings.TrimPrefix(authHeader, "Bearer "))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				api.HandleError(w, domain.ErrInvalidBearerToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
